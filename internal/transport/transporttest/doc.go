/*
Package transporttest intercepts the outbound requests of a transport.Client
(or transport.AsyncClient) for exactly one target URL and lets every other
request through to real sessions.

A Rule names the method, the target URL and the synthetic response to
fabricate. The interceptor replaces one method entry point of the client:

	rule, _ := transporttest.NewRule(http.MethodPost, "https://gw.example/{sender}.json",
		transporttest.WithPayload("0xdeadbeef"),
		transporttest.WithExpectedBody(sender, calldata),
	)
	client := transporttest.NewClient(t, rule, session.New(cfg))

On every call the interceptor checks the caller's contract before anything
else: the timeout must be transport.DefaultTimeout (or
transport.DefaultClientTimeout for async clients) and, for POSTs to the
target, the form body must be {"data": calldata, "sender": sender}. A
violation fails the test through t; when t does not stop the goroutine the
call still returns an error wrapping ErrContractViolation and no response.

Synthetic responses always fail RaiseForStatus with ErrRaiseForStatusCalled.
That is deliberate: code on the happy path must not call it, and code that
handles 4xx gateways can be driven into its failure branch.
*/
package transporttest
