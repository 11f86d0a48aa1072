package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/internal/domain/repository"
)

// ConsentGate decides per recipient and category whether a send is
// permitted. Operational mail (transactional/system/support) fails open on
// store errors; marketing-class mail fails closed. Both policies are
// deliberate: a receipt beats a lost receipt, a missed promo beats an
// unconsented one.
type ConsentGate struct {
	Suppression repository.SuppressionList
	Consent     repository.ConsentStore
	Identity    repository.IdentityResolver
	Logger      *logrus.Logger

	// LookupTimeout bounds every store round trip so a slow consent
	// lookup cannot block a user-facing request path.
	LookupTimeout time.Duration
}

func NewConsentGate(sup repository.SuppressionList, consent repository.ConsentStore, identity repository.IdentityResolver, logger *logrus.Logger, lookupTimeout time.Duration) *ConsentGate {
	if lookupTimeout <= 0 {
		lookupTimeout = 2 * time.Second
	}
	return &ConsentGate{
		Suppression:   sup,
		Consent:       consent,
		Identity:      identity,
		Logger:        logger,
		LookupTimeout: lookupTimeout,
	}
}

func (g *ConsentGate) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.LookupTimeout)
}

// CanSend resolves the recipient's identity itself; use CanSendUser when
// the caller already knows the user id (campaign triggers).
func (g *ConsentGate) CanSend(ctx context.Context, recipient string, category entity.EmailCategory) bool {
	if category.Operational() {
		return g.allowOperational(ctx, recipient)
	}

	ctx, cancel := g.bound(ctx)
	defer cancel()
	userID, err := g.Identity.UserIDForEmail(ctx, recipient)
	if err != nil {
		g.warn(err, recipient, "identity lookup failed, refusing marketing send")
		return false
	}
	if userID == "" {
		return false
	}
	return g.allowMarketing(ctx, userID, recipient)
}

func (g *ConsentGate) CanSendUser(ctx context.Context, userID, recipient string, category entity.EmailCategory) bool {
	if category.Operational() {
		return g.allowOperational(ctx, recipient)
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.allowMarketing(ctx, userID, recipient)
}

func (g *ConsentGate) allowOperational(ctx context.Context, recipient string) bool {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	suppressed, err := g.Suppression.Contains(ctx, recipient)
	if err != nil {
		// Fail open: operational mail is permitted when the store is
		// unreachable.
		g.warn(err, recipient, "suppression check failed, permitting operational send")
		return true
	}
	return !suppressed
}

func (g *ConsentGate) allowMarketing(ctx context.Context, userID, recipient string) bool {
	suppressed, err := g.Suppression.Contains(ctx, recipient)
	if err != nil {
		g.warn(err, recipient, "suppression check failed, refusing marketing send")
		return false
	}
	if suppressed {
		return false
	}
	consented, err := g.Consent.IsMarketingConsented(ctx, userID)
	if err != nil {
		g.warn(err, recipient, "consent lookup failed, refusing marketing send")
		return false
	}
	return consented
}

func (g *ConsentGate) warn(err error, recipient, msg string) {
	if g.Logger != nil {
		g.Logger.WithError(err).WithField("recipient", recipient).Warn(msg)
	}
}
