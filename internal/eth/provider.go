package eth

import (
	"context"
	"errors"
)

// ErrBlockNotFound is returned when the node has no block at the requested height.
var ErrBlockNotFound = errors.New("block not found")

// Provider is the JSON-RPC surface the log assertions are checked against.
type Provider interface {
	// BlockNumber returns the current head block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber returns the header fields of block n.
	BlockByNumber(ctx context.Context, n uint64) (Block, error)

	// GetLogs runs eth_getLogs with the given filter.
	GetLogs(ctx context.Context, filter LogFilter) ([]Log, error)
}

// LogFilter mirrors the eth_getLogs filter object. When BlockHash is set the
// block range is ignored.
type LogFilter struct {
	Addresses []string
	FromBlock uint64
	ToBlock   uint64
	BlockHash string
	Topics    [][]string
}

// Block holds the header fields callers compare logs against.
type Block struct {
	Number     uint64
	Hash       Hash
	ParentHash Hash
	Timestamp  uint64
}

// Log is a decoded eth_getLogs entry.
type Log struct {
	Address          string
	Topics           []string
	Data             string
	BlockNumber      uint64
	BlockHash        Hash
	TransactionHash  Hash
	TransactionIndex uint64
	LogIndex         uint64
	Removed          bool
}
