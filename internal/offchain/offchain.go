// Package offchain resolves EIP-3668 (CCIP read) lookups against their
// gateway URLs through a transport.Client or transport.AsyncClient.
package offchain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/logging"
)

var (
	ErrMalformedURL      = errors.New("offchain: gateway url must contain {sender}")
	ErrMissingData       = errors.New("offchain: gateway response is missing the data field")
	ErrAllRequestsFailed = errors.New("offchain: lookup failed for every gateway url")
)

const (
	senderParam = "{sender}"
	dataParam   = "{data}"
)

// Lookup is the decoded OffchainLookup revert of a contract call.
type Lookup struct {
	Sender           string
	URLs             []string
	CallData         []byte
	CallbackFunction [4]byte
	ExtraData        []byte
}

// reply is what the resolution loop needs from a sync or async response.
type reply interface {
	status() int
	body(ctx context.Context) (map[string]any, error)
	raiseForStatus() error
}

type fetchFunc func(ctx context.Context, method, url string, data map[string]string) (reply, error)

// gatewayRequest expands the placeholders of rawURL. GET carries everything
// in the URL; POST sends a form body.
func gatewayRequest(rawURL, sender, data string) (method, target string, body map[string]string, err error) {
	hasSender := strings.Contains(rawURL, senderParam)
	hasData := strings.Contains(rawURL, dataParam)
	target = strings.ReplaceAll(strings.ReplaceAll(rawURL, senderParam, sender), dataParam, data)
	switch {
	case hasSender && hasData:
		return http.MethodGet, target, nil, nil
	case hasSender:
		return http.MethodPost, target, map[string]string{"data": data, "sender": sender}, nil
	}
	return "", "", nil, fmt.Errorf("%w: %s", ErrMalformedURL, config.RedactURL(rawURL))
}

func resolve(ctx context.Context, l Lookup, fetch fetchFunc) ([]byte, error) {
	logger := logging.Logger().With(zap.String("component", "offchain"))
	sender := strings.ToLower(l.Sender)
	data := "0x" + hex.EncodeToString(l.CallData)

	var errs []error
	for _, rawURL := range l.URLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		method, target, body, err := gatewayRequest(rawURL, sender, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		redacted := config.RedactURL(target)
		resp, err := fetch(ctx, method, target, body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Debug("gateway_request_failed", zap.String("method", method), zap.String("url", redacted), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		code := resp.status()
		if code >= 400 && code <= 499 {
			return nil, resp.raiseForStatus()
		}
		if code < 200 || code > 299 {
			logger.Debug("gateway_bad_status", zap.String("method", method), zap.String("url", redacted), zap.Int("status", code))
			errs = append(errs, fmt.Errorf("%s %s: status %d", method, redacted, code))
			continue
		}
		result, err := resp.body(ctx)
		if err != nil {
			return nil, fmt.Errorf("offchain: decoding gateway response: %w", err)
		}
		raw, ok := result["data"]
		if !ok {
			return nil, ErrMissingData
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("offchain: gateway data must be a hex string, got %T", raw)
		}
		payload, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
		if err != nil {
			return nil, fmt.Errorf("offchain: decoding gateway data: %w", err)
		}
		logger.Debug("gateway_resolved", zap.String("method", method), zap.String("url", redacted), zap.Int("bytes", len(payload)))
		out := make([]byte, 0, len(l.CallbackFunction)+2*word)
		out = append(out, l.CallbackFunction[:]...)
		return append(out, encodeBytesPair(payload, l.ExtraData)...), nil
	}
	if len(errs) == 0 {
		return nil, ErrAllRequestsFailed
	}
	return nil, fmt.Errorf("%w: %w", ErrAllRequestsFailed, errors.Join(errs...))
}
