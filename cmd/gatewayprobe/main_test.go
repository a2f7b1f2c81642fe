package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"testing"

	cfgpkg "github.com/AIAleph/offchain_harness/internal/config"
	"github.com/AIAleph/offchain_harness/internal/eth"
	"github.com/AIAleph/offchain_harness/internal/logging"
	"github.com/AIAleph/offchain_harness/internal/offchain"
)

const sender = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// exitPanic is used to intercept exit calls in tests.
type exitPanic struct{ code int }

func withFreshFlags(t *testing.T, fn func()) {
	t.Helper()
	old := flag.CommandLine
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var buf bytes.Buffer
	flag.CommandLine.SetOutput(&buf)
	defer func() { flag.CommandLine = old }()
	prev := logging.Logger()
	defer logging.SetLogger(prev)
	fn()
}

func captureStd(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout, os.Stderr = wOut, wErr
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()
	doneOut := make(chan struct{})
	doneErr := make(chan struct{})
	var outBuf, errBuf bytes.Buffer
	go func() { _, _ = outBuf.ReadFrom(rOut); close(doneOut) }()
	go func() { _, _ = errBuf.ReadFrom(rErr); close(doneErr) }()
	fn()
	_ = wOut.Close()
	_ = wErr.Close()
	<-doneOut
	<-doneErr
	return outBuf.String(), errBuf.String()
}

// runMain runs main with args and returns its output and exit code (-1 if
// main returned normally).
func runMain(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	code = -1
	withFreshFlags(t, func() {
		oldArgs := os.Args
		os.Args = append([]string{"gatewayprobe"}, args...)
		defer func() { os.Args = oldArgs }()
		oldExit := exit
		defer func() { exit = oldExit }()
		exit = func(c int) { panic(exitPanic{c}) }
		stdout, stderr = captureStd(t, func() {
			defer func() {
				if r := recover(); r != nil {
					ep, ok := r.(exitPanic)
					if !ok {
						panic(r)
					}
					code = ep.code
				}
			}()
			main()
		})
	})
	return stdout, stderr, code
}

type stubResolver struct {
	got offchain.Lookup
	out []byte
	err error
}

func (s *stubResolver) Resolve(ctx context.Context, l offchain.Lookup) ([]byte, error) {
	s.got = l
	return s.out, s.err
}

func stubResolverFactory(t *testing.T, r *stubResolver, gotAsync *bool) {
	t.Helper()
	newResolver = func(cfg cfgpkg.Config, async bool) (resolver, func(), error) {
		*gotAsync = async
		return r, func() {}, nil
	}
	t.Cleanup(wireDefaults)
}

type stubProvider struct {
	filter eth.LogFilter
	logs   []eth.Log
}

func (s *stubProvider) BlockNumber(context.Context) (uint64, error) { return 0, nil }
func (s *stubProvider) BlockByNumber(context.Context, uint64) (eth.Block, error) {
	return eth.Block{}, nil
}
func (s *stubProvider) GetLogs(_ context.Context, f eth.LogFilter) ([]eth.Log, error) {
	s.filter = f
	return s.logs, nil
}

func TestURLList(t *testing.T) {
	var u urlList
	_ = u.Set("https://a/{sender}, https://b/{sender}")
	_ = u.Set("https://c/{sender}/{data}")
	if len(u) != 3 || u[1] != "https://b/{sender}" {
		t.Fatalf("unexpected urls %v", u)
	}
	if !strings.Contains(u.String(), "https://c/") {
		t.Fatalf("String() = %q", u.String())
	}
}

func TestPrintUsage(t *testing.T) {
	withFreshFlags(t, func() {
		var buf bytes.Buffer
		flag.CommandLine.SetOutput(&buf)
		printUsage()
		s := buf.String()
		if !strings.Contains(s, "Usage:") || !strings.Contains(s, "Environment variables") {
			t.Fatalf("unexpected usage output: %q", s)
		}
	})
}

func TestMain_ShowVersion(t *testing.T) {
	version = "test-version"
	out, _, code := runMain(t, "-version")
	if code != -1 || strings.TrimSpace(out) != "test-version" {
		t.Fatalf("version output = %q code=%d", out, code)
	}
}

func TestMain_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing sender", []string{"--url", "https://a/{sender}"}, "missing --sender"},
		{"invalid sender", []string{"--sender", "nothex", "--url", "https://a/{sender}"}, "invalid --sender"},
		{"missing url", []string{"--sender", sender}, "missing --url"},
		{"bad calldata", []string{"--sender", sender, "--url", "https://a/{sender}", "--calldata", "0xzz"}, "invalid --calldata"},
		{"short callback", []string{"--sender", sender, "--url", "https://a/{sender}", "--callback", "0x01"}, "invalid --callback"},
		{"bad extra data", []string{"--sender", sender, "--url", "https://a/{sender}", "--extra-data", "xyz"}, "invalid --extra-data"},
		{"logs bad address", []string{"--mode", "logs", "--address", "0x12"}, "invalid --address"},
		{"logs inverted range", []string{"--mode", "logs", "--address", sender, "--from-block", "9", "--to-block", "3"}, "--from-block cannot be greater"},
		{"unknown mode", []string{"--mode", "weird"}, "unknown --mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := runMain(t, tt.args...)
			if code != 2 {
				t.Fatalf("exit code %d, want 2", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Fatalf("stderr = %q", errOut)
			}
		})
	}
}

func TestMain_DryRunRedacts(t *testing.T) {
	out, _, code := runMain(t, "--sender", sender, "--url", "https://user:pw@gw.example/{sender}", "--dry-run")
	if code != -1 {
		t.Fatalf("unexpected exit %d", code)
	}
	if strings.Contains(out, "pw@") || !strings.Contains(out, strings.ToLower(sender)) {
		t.Fatalf("plan = %s", out)
	}
}

func TestMain_Resolve(t *testing.T) {
	r := &stubResolver{out: []byte{0xb4, 0xa8, 0x58, 0x01, 0xff}}
	var gotAsync bool
	stubResolverFactory(t, r, &gotAsync)

	out, _, code := runMain(t, "--sender", sender, "--url", "https://gw.example/{sender}",
		"--calldata", "0x1234", "--callback", "0xb4a85801", "--extra-data", "0x02", "--async")
	if code != -1 {
		t.Fatalf("unexpected exit %d", code)
	}
	if strings.TrimSpace(out) != "0xb4a85801ff" {
		t.Fatalf("stdout = %q", out)
	}
	if !gotAsync {
		t.Fatal("expected async resolver")
	}
	if r.got.Sender != sender || r.got.CallbackFunction != [4]byte{0xb4, 0xa8, 0x58, 0x01} ||
		!bytes.Equal(r.got.CallData, []byte{0x12, 0x34}) || !bytes.Equal(r.got.ExtraData, []byte{0x02}) {
		t.Fatalf("unexpected lookup %+v", r.got)
	}
}

func TestMain_ResolveError(t *testing.T) {
	r := &stubResolver{err: offchain.ErrAllRequestsFailed}
	var gotAsync bool
	stubResolverFactory(t, r, &gotAsync)

	_, errOut, code := runMain(t, "--sender", sender, "--url", "https://gw.example/{sender}")
	if code != 1 || !strings.Contains(errOut, "lookup error") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestMain_ResolverFactoryError(t *testing.T) {
	newResolver = func(cfgpkg.Config, bool) (resolver, func(), error) { return nil, nil, errors.New("boom") }
	t.Cleanup(wireDefaults)
	_, errOut, code := runMain(t, "--sender", sender, "--url", "https://gw.example/{sender}")
	if code != 1 || !strings.Contains(errOut, "client error: boom") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestMain_Logs(t *testing.T) {
	p := &stubProvider{logs: []eth.Log{{Address: sender, BlockNumber: 10, TransactionHash: eth.MustHash("0xabc")}}}
	newProvider = func(cfgpkg.Config) (eth.Provider, error) { return p, nil }
	t.Cleanup(wireDefaults)

	out, _, code := runMain(t, "--mode", "logs", "--address", sender, "--from-block", "10")
	if code != -1 {
		t.Fatalf("unexpected exit %d", code)
	}
	if p.filter.FromBlock != 10 || p.filter.ToBlock != 10 || p.filter.Addresses[0] != sender {
		t.Fatalf("unexpected filter %+v", p.filter)
	}
	if !strings.Contains(out, eth.MustHash("0xabc").Hex()) {
		t.Fatalf("stdout = %s", out)
	}
}

func TestMain_LogsProviderError(t *testing.T) {
	t.Setenv("ETH_PROVIDER_URL", "")
	_, errOut, code := runMain(t, "--mode", "logs", "--address", sender)
	if code != 1 || !strings.Contains(errOut, "provider error") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestDefaultNewResolver(t *testing.T) {
	for _, async := range []bool{false, true} {
		r, closeFn, err := defaultNewResolver(cfgpkg.Config{}, async)
		if err != nil {
			t.Fatal(err)
		}
		switch r.(type) {
		case *offchain.Resolver:
			if async {
				t.Fatal("expected async resolver")
			}
		case *offchain.AsyncResolver:
			if !async {
				t.Fatal("expected sync resolver")
			}
		default:
			t.Fatalf("unexpected resolver %T", r)
		}
		closeFn()
	}
}
