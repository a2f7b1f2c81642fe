package transporttest

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// ErrContractViolation marks a call the caller made incorrectly.
var ErrContractViolation = errors.New("transporttest: contract violation")

type tHelper interface {
	Helper()
}

// violation fails t and returns the matching error for callers whose t
// does not stop the goroutine.
func violation(t require.TestingT, format string, args ...any) error {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	msg := fmt.Sprintf(format, args...)
	t.Errorf("%s", msg)
	t.FailNow()
	return fmt.Errorf("%w: %s", ErrContractViolation, msg)
}

func expectTimeout[T comparable](t require.TestingT, want, got T) error {
	if want == got {
		return nil
	}
	return violation(t, "request timeout must be %v, got %v", want, got)
}

func expectBody(t require.TestingT, want, got map[string]string) error {
	if diff := cmp.Diff(want, got); diff != "" {
		return violation(t, "unexpected POST body (-want +got):\n%s", diff)
	}
	return nil
}
