package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

func newTestGate(sup *fakeSuppression, consent *fakeConsent, identity *fakeIdentity) *ConsentGate {
	return NewConsentGate(sup, consent, identity, nil, time.Second)
}

func TestGateOperationalAllowsUnknownRecipient(t *testing.T) {
	g := newTestGate(newFakeSuppression(), newFakeConsent(), &fakeIdentity{byEmail: map[string]string{}})
	assert.True(t, g.CanSend(context.Background(), "new@example.com", entity.CategoryTransactional))
}

func TestGateOperationalBlocksSuppressed(t *testing.T) {
	g := newTestGate(newFakeSuppression("gone@example.com"), newFakeConsent(), &fakeIdentity{})
	assert.False(t, g.CanSend(context.Background(), "gone@example.com", entity.CategoryTransactional))
}

func TestGateOperationalFailsOpenOnStoreError(t *testing.T) {
	sup := newFakeSuppression()
	sup.failAll = errors.New("redis down")
	g := newTestGate(sup, newFakeConsent(), &fakeIdentity{})

	assert.True(t, g.CanSend(context.Background(), "user@example.com", entity.CategorySystem))
	assert.True(t, g.CanSend(context.Background(), "user@example.com", entity.CategorySupport))
}

func TestGateMarketingRequiresConsent(t *testing.T) {
	identity := &fakeIdentity{byEmail: map[string]string{
		"yes@example.com": "u1",
		"no@example.com":  "u2",
	}}
	g := newTestGate(newFakeSuppression(), newFakeConsent("u1"), identity)

	ctx := context.Background()
	assert.True(t, g.CanSend(ctx, "yes@example.com", entity.CategoryMarketing))
	assert.False(t, g.CanSend(ctx, "no@example.com", entity.CategoryMarketing))
	// No identity record at all means no consent record either.
	assert.False(t, g.CanSend(ctx, "stranger@example.com", entity.CategoryMarketing))
}

func TestGateMarketingFailsClosedOnStoreError(t *testing.T) {
	identity := &fakeIdentity{byEmail: map[string]string{"a@example.com": "u1"}}

	sup := newFakeSuppression()
	sup.failAll = errors.New("redis down")
	g := newTestGate(sup, newFakeConsent("u1"), identity)
	assert.False(t, g.CanSend(context.Background(), "a@example.com", entity.CategoryMarketing))

	consent := newFakeConsent("u1")
	consent.failAll = errors.New("redis down")
	g = newTestGate(newFakeSuppression(), consent, identity)
	assert.False(t, g.CanSend(context.Background(), "a@example.com", entity.CategoryMarketing))

	badIdentity := &fakeIdentity{failAll: errors.New("redis down")}
	g = newTestGate(newFakeSuppression(), newFakeConsent("u1"), badIdentity)
	assert.False(t, g.CanSend(context.Background(), "a@example.com", entity.CategoryMarketing))
}

func TestGateMarketingSuppressionWinsOverConsent(t *testing.T) {
	identity := &fakeIdentity{byEmail: map[string]string{"a@example.com": "u1"}}
	g := newTestGate(newFakeSuppression("a@example.com"), newFakeConsent("u1"), identity)
	assert.False(t, g.CanSend(context.Background(), "a@example.com", entity.CategoryMarketing))
}

func TestGateCanSendUserSkipsIdentityLookup(t *testing.T) {
	// Identity resolver errors must not matter when the caller already
	// knows the user id.
	badIdentity := &fakeIdentity{failAll: errors.New("redis down")}
	g := newTestGate(newFakeSuppression(), newFakeConsent("u1"), badIdentity)

	assert.True(t, g.CanSendUser(context.Background(), "u1", "a@example.com", entity.CategoryRetention))
	assert.False(t, g.CanSendUser(context.Background(), "u2", "b@example.com", entity.CategoryRetention))
}
