package ethtest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AIAleph/offchain_harness/internal/eth"
)

const (
	emitter   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	txHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	blockHash = "0x8b9d3ac4b1d6e6fa1bfbd0a4a4c6b1a27fb7b0a3fd8b2fd0b4c9e3e6d1c2b3a4"
)

// recordingT collects failures without stopping the goroutine.
type recordingT struct {
	messages []string
	stopped  bool
}

func (r *recordingT) Errorf(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recordingT) FailNow() { r.stopped = true }

func block10() eth.Block {
	return eth.Block{Number: 10, Hash: eth.MustHash(blockHash)}
}

func matchingLog() eth.Log {
	return eth.Log{
		Address:          strings.ToLower(emitter),
		BlockNumber:      10,
		BlockHash:        eth.MustHash(blockHash),
		TransactionHash:  eth.MustHash(txHash),
		TransactionIndex: 0,
		LogIndex:         0,
	}
}

func TestAssertSingleLogMatches_Passes(t *testing.T) {
	ok := AssertSingleLogMatches(t, []eth.Log{matchingLog()}, block10(), emitter, txHash)
	assert.True(t, ok)
}

func TestAssertSingleLogMatches_NormalizesInputs(t *testing.T) {
	// Checksum, lower and upper casing of the emitter, and an upper-case tx hash.
	for _, e := range []string{emitter, strings.ToLower(emitter), "0x" + strings.ToUpper(emitter[2:])} {
		rt := &recordingT{}
		ok := AssertSingleLogMatches(rt, []eth.Log{matchingLog()}, block10(), e, "0x"+strings.ToUpper(txHash[2:]))
		assert.True(t, ok, e)
		assert.Empty(t, rt.messages, e)
		assert.False(t, rt.stopped, e)
	}
}

func TestAssertSingleLogMatches_Failures(t *testing.T) {
	other := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	tests := []struct {
		name    string
		results func() []eth.Log
		emitter string
		txHash  string
	}{
		{name: "no logs", results: func() []eth.Log { return nil }},
		{name: "two logs", results: func() []eth.Log { return []eth.Log{matchingLog(), matchingLog()} }},
		{name: "wrong block number", results: func() []eth.Log {
			l := matchingLog()
			l.BlockNumber = 11
			return []eth.Log{l}
		}},
		{name: "wrong block hash", results: func() []eth.Log {
			l := matchingLog()
			l.BlockHash = eth.MustHash("0x01")
			return []eth.Log{l}
		}},
		{name: "non-zero log index", results: func() []eth.Log {
			l := matchingLog()
			l.LogIndex = 1
			return []eth.Log{l}
		}},
		{name: "non-zero transaction index", results: func() []eth.Log {
			l := matchingLog()
			l.TransactionIndex = 2
			return []eth.Log{l}
		}},
		{name: "different emitter", results: func() []eth.Log { return []eth.Log{matchingLog()} }, emitter: other},
		{name: "different tx hash", results: func() []eth.Log { return []eth.Log{matchingLog()} }, txHash: "0x1234"},
		{name: "malformed tx hash", results: func() []eth.Log { return []eth.Log{matchingLog()} }, txHash: "0xnothex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, h := emitter, txHash
			if tt.emitter != "" {
				e = tt.emitter
			}
			if tt.txHash != "" {
				h = tt.txHash
			}
			rt := &recordingT{}
			ok := AssertSingleLogMatches(rt, tt.results(), block10(), e, h)
			assert.False(t, ok)
			assert.True(t, rt.stopped)
			assert.NotEmpty(t, rt.messages)
		})
	}
}

func TestAssertSingleLogMatches_TxHashMustBeFullLength(t *testing.T) {
	full := "0x" + strings.Repeat("00", 30) + "1234"
	l := matchingLog()
	l.TransactionHash = eth.MustHash(full)

	assert.True(t, AssertSingleLogMatches(t, []eth.Log{l}, block10(), emitter, full))

	rt := &recordingT{}
	ok := AssertSingleLogMatches(rt, []eth.Log{l}, block10(), emitter, "0x1234")
	assert.False(t, ok)
	assert.True(t, rt.stopped)
	require.Len(t, rt.messages, 1)
	assert.Contains(t, rt.messages[0], "want 64 hex digits")
}

func TestAssertSingleLogMatches_ProviderResults(t *testing.T) {
	client := &http.Client{}
	gock.InterceptClient(client)
	defer gock.RestoreClient(client)
	defer gock.Off()

	gock.New("http://rpc.test").
		Post("/").
		BodyString("eth_getBlockByNumber").
		Reply(200).
		JSON(map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]any{
			"number": "0xa", "hash": blockHash, "parentHash": "0x00", "timestamp": "0x1",
		}})
	gock.New("http://rpc.test").
		Post("/").
		BodyString("eth_getLogs").
		Reply(200).
		JSON(map[string]any{"jsonrpc": "2.0", "id": 1, "result": []map[string]any{{
			"address":          strings.ToLower(emitter),
			"topics":           []string{},
			"data":             "0x",
			"blockNumber":      "0xa",
			"blockHash":        blockHash,
			"transactionHash":  txHash,
			"transactionIndex": "0x0",
			"logIndex":         "0x0",
		}}})

	p, err := eth.NewHTTPProvider("http://rpc.test/", client)
	require.NoError(t, err)
	ctx := context.Background()
	blk, err := p.BlockByNumber(ctx, 10)
	require.NoError(t, err)
	logs, err := p.GetLogs(ctx, eth.LogFilter{Addresses: []string{emitter}, BlockHash: blk.Hash.Hex()})
	require.NoError(t, err)

	assert.True(t, AssertSingleLogMatches(t, logs, blk, emitter, txHash))
	assert.True(t, gock.IsDone())
}
