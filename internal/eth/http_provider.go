package eth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpProvider is a minimal JSON-RPC client for Ethereum endpoints.
// Rate limiting is left to wrappers (RLProvider).
type httpProvider struct {
	endpoint    string
	providerLbl string
	hc          httpDoer
	maxRetries  int
	backoffBase time.Duration
}

// NewHTTPProvider constructs a JSON-RPC provider using the given http.Client (or a default one if nil).
func NewHTTPProvider(endpoint string, client *http.Client) (Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpProvider{
		endpoint:    endpoint,
		providerLbl: deriveProviderLabel(endpoint),
		hc:          client,
		maxRetries:  2,
		backoffBase: 100 * time.Millisecond,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	Result  jsoniter.RawMessage `json:"result"`
	Error   *rpcError           `json:"error"`
	ID      int64               `json:"id"`
}

func deriveProviderLabel(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	if u, err := url.Parse(endpoint); err == nil {
		u.User = nil
		if u.Host != "" {
			return u.Host
		}
		if u.Scheme == "" {
			return endpoint
		}
		return u.String()
	}
	return endpoint
}

func (p *httpProvider) call(ctx context.Context, method string, params any, out any) error {
	reqBody, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	logger := logging.Logger().With(zap.String("component", "eth"), zap.String("provider", p.providerLbl), zap.String("method", method))
	var lastErr error
	attempts := p.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.hc.Do(req)
		if err != nil {
			lastErr = err
		} else {
			func() {
				defer func() {
					_ = resp.Body.Close()
				}()
				if resp.StatusCode/100 != 2 {
					b, _ := io.ReadAll(resp.Body)
					lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
					return
				}
				var rr rpcResponse
				if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
					lastErr = err
					return
				}
				if rr.Error != nil {
					lastErr = fmt.Errorf("rpc %d: %s", rr.Error.Code, rr.Error.Message)
					return
				}
				lastErr = nil
				if out != nil {
					lastErr = json.Unmarshal(rr.Result, out)
				}
			}()
			if lastErr == nil {
				return nil
			}
			// Only 5xx and 429 are retried once a response arrived.
			if sc := resp.StatusCode; sc != http.StatusTooManyRequests && sc < 500 {
				break
			}
		}
		if attempt < attempts-1 {
			d := p.backoffBase * (1 << attempt)
			logger.Debug("retrying rpc call", zap.Int("attempt", attempt+1), zap.Duration("backoff", d), zap.Error(lastErr))
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return lastErr
}

// hexToUint64 parses an Ethereum hex quantity (e.g., "0x2a") into uint64.
func hexToUint64(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
		return 0, fmt.Errorf("invalid hex quantity: %q", s)
	}
	return v, nil
}

func toHex(n uint64) string { return fmt.Sprintf("0x%x", n) }

func (p *httpProvider) BlockNumber(ctx context.Context) (uint64, error) {
	var res string
	if err := p.call(ctx, "eth_blockNumber", []any{}, &res); err != nil {
		return 0, err
	}
	return hexToUint64(res)
}

type rpcBlock struct {
	Number     string `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parentHash"`
	Timestamp  string `json:"timestamp"`
}

func (p *httpProvider) BlockByNumber(ctx context.Context, n uint64) (Block, error) {
	var raw *rpcBlock
	if err := p.call(ctx, "eth_getBlockByNumber", []any{toHex(n), false}, &raw); err != nil {
		return Block{}, err
	}
	if raw == nil {
		return Block{}, fmt.Errorf("%w: %d", ErrBlockNotFound, n)
	}
	num, err := hexToUint64(raw.Number)
	if err != nil {
		return Block{}, err
	}
	ts, err := hexToUint64(raw.Timestamp)
	if err != nil {
		return Block{}, err
	}
	hash, err := HashFromHex(raw.Hash)
	if err != nil {
		return Block{}, err
	}
	parent, err := HashFromHex(raw.ParentHash)
	if err != nil {
		return Block{}, err
	}
	return Block{Number: num, Hash: hash, ParentHash: parent, Timestamp: ts}, nil
}

type rpcLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockHex    string   `json:"blockNumber"`
	BlockHash   string   `json:"blockHash"`
	TxHash      string   `json:"transactionHash"`
	TxIndexHex  string   `json:"transactionIndex"`
	LogIndexHex string   `json:"logIndex"`
	Removed     bool     `json:"removed"`
}

func (f LogFilter) params() map[string]any {
	// Each topic position may be null, a string, or an array of strings.
	var topics []any
	for _, group := range f.Topics {
		switch len(group) {
		case 0:
			topics = append(topics, nil)
		case 1:
			topics = append(topics, group[0])
		default:
			arr := make([]string, len(group))
			copy(arr, group)
			topics = append(topics, arr)
		}
	}
	m := map[string]any{"topics": topics}
	switch len(f.Addresses) {
	case 0:
	case 1:
		m["address"] = f.Addresses[0]
	default:
		m["address"] = f.Addresses
	}
	if f.BlockHash != "" {
		m["blockHash"] = f.BlockHash
	} else {
		m["fromBlock"] = toHex(f.FromBlock)
		m["toBlock"] = toHex(f.ToBlock)
	}
	return m
}

// GetLogs implements eth_getLogs.
func (p *httpProvider) GetLogs(ctx context.Context, filter LogFilter) ([]Log, error) {
	var raw []rpcLog
	if err := p.call(ctx, "eth_getLogs", []any{filter.params()}, &raw); err != nil {
		return nil, err
	}
	out := make([]Log, 0, len(raw))
	for _, l := range raw {
		lg, err := l.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, lg)
	}
	return out, nil
}

func (l rpcLog) decode() (Log, error) {
	blk, err := hexToUint64(l.BlockHex)
	if err != nil {
		return Log{}, err
	}
	txIdx, err := hexToUint64(l.TxIndexHex)
	if err != nil {
		return Log{}, err
	}
	logIdx, err := hexToUint64(l.LogIndexHex)
	if err != nil {
		return Log{}, err
	}
	blockHash, err := HashFromHex(l.BlockHash)
	if err != nil {
		return Log{}, err
	}
	txHash, err := HashFromHex(l.TxHash)
	if err != nil {
		return Log{}, err
	}
	return Log{
		Address:          l.Address,
		Topics:           l.Topics,
		Data:             l.Data,
		BlockNumber:      blk,
		BlockHash:        blockHash,
		TransactionHash:  txHash,
		TransactionIndex: txIdx,
		LogIndex:         logIdx,
		Removed:          l.Removed,
	}, nil
}
