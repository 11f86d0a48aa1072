package mailer

import "context"

// Transport is the external email gateway. Deliver must be safe to call
// again for the same job on retry; the engine guarantees at-least-once,
// not exactly-once.
type Transport interface {
	Deliver(ctx context.Context, to, templateID string, variables map[string]any) error
}

// PermanentError marks a delivery failure that retrying cannot fix
// (invalid address, hard bounce). The dispatcher short-circuits these to
// failed instead of exhausting the retry budget.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return "permanent delivery failure: " + e.Reason
}
