package gateway

import "context"

// SimulatedAuthority is the deterministic local stand-in used when no
// gateway endpoint is configured. The substitution is deliberate and
// logged at construction, never an error mask.
type SimulatedAuthority struct{}

// Submit returns a canned IRN derived from the invoice number.
func (SimulatedAuthority) Submit(_ context.Context, payload Payload, _ bool) (Result, error) {
	number := payload.InvoiceNumber
	if number == "" {
		number = "0"
	}
	return Result{Status: "IRN_ASSIGNED", IRN: "IRN-SIM-" + number}, nil
}
