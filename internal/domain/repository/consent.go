package repository

import "context"

// ConsentStore tracks explicit marketing consent per user identity. The
// records are written by the main application (signup form, preference
// center); the engine only reads them plus flips consent off on
// marketing-scope unsubscribes.
type ConsentStore interface {
	IsMarketingConsented(ctx context.Context, userID string) (bool, error)
	RecordConsentChange(ctx context.Context, userID string, granted bool) error
}

// IdentityResolver maps a recipient address to the application's user id.
// Returns ("", nil) when no identity is known for the address.
type IdentityResolver interface {
	UserIDForEmail(ctx context.Context, email string) (string, error)
}
