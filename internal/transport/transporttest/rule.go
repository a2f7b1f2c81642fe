package transporttest

import (
	"net/http"

	"github.com/AIAleph/offchain_harness/internal/transport"
)

const (
	DefaultStatusCode = http.StatusOK
	DefaultPayload    = "0x"
	DefaultField      = "data"
)

// Rule is the immutable configuration of one interceptor.
type Rule struct {
	// Method is the entry point intercepted, GET or POST.
	Method string
	// TargetURL is the only URL answered with a synthetic response.
	TargetURL  string
	StatusCode int
	// JSONPayload is served under JSONField in the synthetic body.
	JSONPayload string
	JSONField   string
	// ExpectedSender and ExpectedCalldata are the POST body the caller must send.
	ExpectedSender   string
	ExpectedCalldata string
}

// RuleOption customizes a Rule built by NewRule.
type RuleOption func(*Rule)

func WithStatusCode(code int) RuleOption { return func(r *Rule) { r.StatusCode = code } }

func WithPayload(payload string) RuleOption { return func(r *Rule) { r.JSONPayload = payload } }

func WithField(field string) RuleOption { return func(r *Rule) { r.JSONField = field } }

// WithExpectedBody sets the POST body the caller must send to the target.
func WithExpectedBody(sender, calldata string) RuleOption {
	return func(r *Rule) {
		r.ExpectedSender = sender
		r.ExpectedCalldata = calldata
	}
}

// NewRule builds a Rule with defaults: status 200, payload "0x" under "data".
func NewRule(method, targetURL string, opts ...RuleOption) (Rule, error) {
	m, err := transport.NormalizeMethod(method)
	if err != nil {
		return Rule{}, err
	}
	r := Rule{
		Method:      m,
		TargetURL:   targetURL,
		StatusCode:  DefaultStatusCode,
		JSONPayload: DefaultPayload,
		JSONField:   DefaultField,
	}
	for _, o := range opts {
		o(&r)
	}
	return r, nil
}

// Matches reports whether url is the rule's target. No pattern matching.
func (r Rule) Matches(url string) bool { return url == r.TargetURL }

// ExpectedBody is the form body a POST to the target must carry.
func (r Rule) ExpectedBody() map[string]string {
	return map[string]string{"data": r.ExpectedCalldata, "sender": r.ExpectedSender}
}

func (r Rule) isPost() bool {
	m, err := transport.NormalizeMethod(r.Method)
	return err == nil && m == http.MethodPost
}

// Response returns the synthetic response for the rule.
func (r Rule) Response() *SyntheticResponse {
	return &SyntheticResponse{code: r.StatusCode, field: r.JSONField, payload: r.JSONPayload}
}

// AsyncResponse returns the awaitable synthetic response for the rule.
func (r Rule) AsyncResponse() *AsyncSyntheticResponse {
	return &AsyncSyntheticResponse{status: r.StatusCode, field: r.JSONField, payload: r.JSONPayload}
}
