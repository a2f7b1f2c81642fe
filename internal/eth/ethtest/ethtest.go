// Package ethtest holds assertions over eth.Provider results.
package ethtest

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIAleph/offchain_harness/internal/eth"
)

type tHelper interface {
	Helper()
}

// AssertSingleLogMatches checks that results holds exactly one log, emitted by
// emitter in transaction txHash as the first log of the first transaction of
// block. Emitter addresses compare independent of checksum casing. txHash must
// spell out all 32 bytes; letter case and the 0x prefix do not matter, but a
// hash with its leading zero bytes dropped is a mismatch. Any mismatch fails t immediately; the return
// value is only meaningful when t does not stop the goroutine.
func AssertSingleLogMatches(t require.TestingT, results []eth.Log, block eth.Block, emitter string, txHash string) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !assert.Len(t, results, 1, "expected exactly one log") {
		t.FailNow()
		return false
	}
	log := results[0]
	want, err := eth.ParseHash(txHash)
	ok := assert.Equal(t, block.Number, log.BlockNumber, "block number") &&
		assert.Equal(t, block.Hash.Hex(), log.BlockHash.Hex(), "block hash") &&
		assert.Zero(t, log.LogIndex, "log index") &&
		assert.Zero(t, log.TransactionIndex, "transaction index") &&
		assert.Truef(t, eth.IsSameAddress(log.Address, emitter), "emitter: expected %s, got %s", emitter, log.Address) &&
		assert.NoError(t, err, "expected transaction hash") &&
		assert.Equal(t, want.Hex(), log.TransactionHash.Hex(), "transaction hash")
	if !ok {
		t.FailNow()
	}
	return ok
}
