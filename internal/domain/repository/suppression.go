package repository

import "context"

// SuppressionList is the global unsubscribe set. Contains must report its
// error separately so callers can apply their own fallback policy: the
// consent gate fails open for operational mail and closed for marketing.
type SuppressionList interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, email string) error
}
