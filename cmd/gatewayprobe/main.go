package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/eth"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/offchain"
	"github.com/AIAleph/offchain_harness/internal/session"
	"github.com/AIAleph/offchain_harness/internal/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type resolver interface {
	Resolve(ctx context.Context, l offchain.Lookup) ([]byte, error)
}

var (
	// version is set via -ldflags "-X main.version=..."
	version = "dev"
	// exit is aliased to os.Exit to allow overriding in tests.
	exit = os.Exit
	// function variables allow tests to inject stubs
	newResolver func(cfg cfgpkg.Config, async bool) (resolver, func(), error)
	newProvider func(cfg cfgpkg.Config) (eth.Provider, error)
)

func defaultNewResolver(cfg cfgpkg.Config, async bool) (resolver, func(), error) {
	cache := session.New(cfg)
	if async {
		c, err := transport.NewAsyncClient(cache)
		if err != nil {
			cache.Close()
			return nil, nil, err
		}
		return offchain.NewAsyncResolver(c), cache.Close, nil
	}
	c, err := transport.NewClient(cache)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	return offchain.NewResolver(c), cache.Close, nil
}

func defaultNewProvider(cfg cfgpkg.Config) (eth.Provider, error) {
	return eth.NewProvider(cfg)
}

func wireDefaults() {
	newResolver = defaultNewResolver
	newProvider = defaultNewProvider
}

func init() { wireDefaults() }

// urlList collects a repeatable --url flag.
type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*u = append(*u, s)
		}
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
}

// printUsage prints a detailed CLI help with env mappings and examples.
func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "\nUsage:\n  %s --mode resolve --sender 0x... --url https://gw/{sender}/{data}.json [flags]\n", os.Args[0])
	fmt.Fprintf(out, "  %s --mode logs --address 0x... --from-block N [--to-block M] [flags]\n\n", os.Args[0])
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nEnvironment variables (defaults):")
	fmt.Fprintln(out, "  ETH_PROVIDER_URL        RPC endpoint for --mode logs (default empty)")
	fmt.Fprintln(out, "  RATE_LIMIT              RPC rate limit (req/s, default 0 = unlimited)")
	fmt.Fprintln(out, "  HTTP_RETRIES            RPC retries on 5xx/429/network (default 2)")
	fmt.Fprintln(out, "  HTTP_BACKOFF_BASE       Backoff base for retries (default 100ms)")
	fmt.Fprintln(out, "  REQUEST_TIMEOUT         Per-request timeout (default 10s)")
	fmt.Fprintln(out, "  SESSION_CACHE_SIZE      Gateway sessions kept (default 100)")
	fmt.Fprintln(out, "  SESSION_IDLE_TTL        Idle session expiry (default 5m)")
	fmt.Fprintln(out, "  MAX_IDLE_CONNS_PER_HOST Pooled connections per gateway host (default 32)")
	fmt.Fprintln(out, "  LOG_LEVEL, LOG_FORMAT, LOG_FILE  Logging (default info, json, stderr only)")
	fmt.Fprintln(out, "\nExamples:")
	fmt.Fprintln(out, "  Resolve a lookup against two gateways:")
	fmt.Fprintln(out, "    gatewayprobe --sender 0xabc... --calldata 0x1234 --url https://a/{sender}/{data}.json --url https://b/{sender}")
	fmt.Fprintln(out, "  Print the logs an emitter produced in block 10:")
	fmt.Fprintln(out, "    gatewayprobe --mode logs --address 0xabc... --from-block 10 --provider $ETH_PROVIDER_URL")
}

func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exit(code)
}

// gatewayprobe resolves offchain lookups against live gateways and prints
// emitter logs, using the same sessions and provider the tests exercise.
func main() {
	cfg := cfgpkg.Load()
	var (
		mode        string
		sender      string
		calldata    string
		callback    string
		extraData   string
		urls        urlList
		async       bool
		address     string
		fromBlock   uint64
		toBlock     uint64
		timeout     time.Duration
		dryRun      bool
		showVersion bool
	)

	flag.Usage = printUsage
	flag.StringVar(&mode, "mode", "resolve", "Mode: resolve | logs")
	flag.StringVar(&sender, "sender", "", "Lookup sender address (0x...) [resolve]")
	flag.StringVar(&calldata, "calldata", "0x", "Lookup calldata, hex [resolve]")
	flag.StringVar(&callback, "callback", "0x00000000", "Callback function selector, 4 bytes hex [resolve]")
	flag.StringVar(&extraData, "extra-data", "0x", "Lookup extra data, hex [resolve]")
	flag.Var(&urls, "url", "Gateway URL template; repeatable or comma separated [resolve]")
	flag.BoolVar(&async, "async", false, "Use the asynchronous client [resolve]")
	flag.StringVar(&address, "address", "", "Emitter address (0x...) [logs]")
	flag.Uint64Var(&fromBlock, "from-block", 0, "Start block [logs]")
	flag.Uint64Var(&toBlock, "to-block", 0, "End block (0 = from-block) [logs]")
	flag.StringVar(&cfg.ProviderURL, "provider", cfg.ProviderURL, "Ethereum RPC provider URL (ETH_PROVIDER_URL)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "RPC rate limit (req/s, 0 = unlimited)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.BoolVar(&dryRun, "dry-run", false, "Print plan and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	// stdout carries results; logs go to stderr.
	logger := logging.Init(cfg.Log, zapcore.Lock(os.Stderr))
	defer func() { _ = logger.Sync() }()

	mode = strings.ToLower(mode)
	var (
		lookup offchain.Lookup
		filter eth.LogFilter
	)
	switch mode {
	case "resolve":
		if sender == "" {
			fail(2, "missing --sender (0x...); see --help")
			return
		}
		if !eth.IsAddress(sender) {
			fail(2, "invalid --sender; expected a 20-byte hex address")
			return
		}
		if len(urls) == 0 {
			fail(2, "missing --url; see --help")
			return
		}
		cd, err := decodeHex(calldata)
		if err != nil {
			fail(2, "invalid --calldata: %v", err)
			return
		}
		cb, err := decodeHex(callback)
		if err != nil || len(cb) != 4 {
			fail(2, "invalid --callback; expected 4 bytes hex")
			return
		}
		extra, err := decodeHex(extraData)
		if err != nil {
			fail(2, "invalid --extra-data: %v", err)
			return
		}
		lookup = offchain.Lookup{Sender: sender, URLs: urls, CallData: cd, ExtraData: extra}
		copy(lookup.CallbackFunction[:], cb)
	case "logs":
		if !eth.IsAddress(address) {
			fail(2, "invalid --address; expected a 20-byte hex address")
			return
		}
		if toBlock == 0 {
			toBlock = fromBlock
		}
		if fromBlock > toBlock {
			fail(2, "--from-block cannot be greater than --to-block")
			return
		}
		filter = eth.LogFilter{Addresses: []string{address}, FromBlock: fromBlock, ToBlock: toBlock}
	default:
		fail(2, "unknown --mode %q (use resolve|logs)", mode)
		return
	}

	if dryRun {
		plan := map[string]any{
			"mode":     mode,
			"provider": cfgpkg.RedactURL(cfg.ProviderURL),
			"timeout":  timeout.String(),
		}
		if mode == "resolve" {
			redacted := make([]string, len(urls))
			for i, u := range urls {
				redacted[i] = cfgpkg.RedactURL(u)
			}
			plan["sender"] = strings.ToLower(sender)
			plan["urls"] = redacted
			plan["async"] = async
		} else {
			plan["address"] = address
			plan["from_block"] = fromBlock
			plan["to_block"] = toBlock
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(plan)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch mode {
	case "resolve":
		r, closeFn, err := newResolver(cfg, async)
		if err != nil {
			fail(1, "client error: %v", err)
			return
		}
		defer closeFn()
		out, err := r.Resolve(ctx, lookup)
		if err != nil {
			logger.Debug("lookup_failed", zap.Int("urls", len(urls)), zap.Error(err))
			fail(1, "lookup error: %v", err)
			return
		}
		fmt.Println("0x" + hex.EncodeToString(out))
	case "logs":
		p, err := newProvider(cfg)
		if err != nil {
			fail(1, "provider error: %v", err)
			return
		}
		logs, err := p.GetLogs(ctx, filter)
		if err != nil {
			fail(1, "getLogs error: %v", err)
			return
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(logs)
	}
}
