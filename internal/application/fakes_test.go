package application

import (
	"context"
	"sync"
	"time"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// fakeSuppression is an in-memory SuppressionList with optional error
// injection.
type fakeSuppression struct {
	mu      sync.Mutex
	set     map[string]bool
	failAll error
}

func newFakeSuppression(emails ...string) *fakeSuppression {
	f := &fakeSuppression{set: map[string]bool{}}
	for _, e := range emails {
		f.set[e] = true
	}
	return f
}

func (f *fakeSuppression) Contains(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	return f.set[email], nil
}

func (f *fakeSuppression) Add(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.set[email] = true
	return nil
}

type fakeConsent struct {
	mu      sync.Mutex
	granted map[string]bool
	failAll error
}

func newFakeConsent(userIDs ...string) *fakeConsent {
	f := &fakeConsent{granted: map[string]bool{}}
	for _, id := range userIDs {
		f.granted[id] = true
	}
	return f
}

func (f *fakeConsent) IsMarketingConsented(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	return f.granted[userID], nil
}

func (f *fakeConsent) RecordConsentChange(_ context.Context, userID string, granted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.granted[userID] = granted
	return nil
}

type fakeIdentity struct {
	byEmail map[string]string
	failAll error
}

func (f *fakeIdentity) UserIDForEmail(_ context.Context, email string) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	return f.byEmail[email], nil
}

// fakeLimiter counts sends in memory with the same post-increment
// semantics as the Redis implementation.
type fakeLimiter struct {
	mu       sync.Mutex
	cooldown map[string]bool
	counts   map[string]int
	failAll  error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{cooldown: map[string]bool{}, counts: map[string]int{}}
}

func limiterKey(userID, campaignID string) string { return userID + ":" + campaignID }

func (f *fakeLimiter) ShouldSkip(_ context.Context, userID string, c entity.RetentionCampaign) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false
	}
	return f.cooldown[limiterKey(userID, c.ID)]
}

func (f *fakeLimiter) SendCount(_ context.Context, userID, campaignID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	return f.counts[limiterKey(userID, campaignID)], nil
}

func (f *fakeLimiter) RecordSend(_ context.Context, userID string, c entity.RetentionCampaign) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	k := limiterKey(userID, c.ID)
	f.cooldown[k] = true
	f.counts[k]++
	return f.counts[k], nil
}

// fakeDeliveryLog records calls for assertions.
type fakeDeliveryLog struct {
	mu           sync.Mutex
	sent         []entity.EmailJob
	failed       []entity.EmailJob
	engagements  map[string][]entity.EngagementEvent
	unsubscribes map[string]entity.UnsubscribeScope
}

func newFakeDeliveryLog() *fakeDeliveryLog {
	return &fakeDeliveryLog{
		engagements:  map[string][]entity.EngagementEvent{},
		unsubscribes: map[string]entity.UnsubscribeScope{},
	}
}

func (f *fakeDeliveryLog) RecordSent(_ context.Context, job *entity.EmailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *job)
	return nil
}

func (f *fakeDeliveryLog) RecordFailed(_ context.Context, job *entity.EmailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, *job)
	return nil
}

func (f *fakeDeliveryLog) RecordEngagement(_ context.Context, jobID string, event entity.EngagementEvent, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engagements[jobID] = append(f.engagements[jobID], event)
	return nil
}

func (f *fakeDeliveryLog) RecordUnsubscribe(_ context.Context, email string, scope entity.UnsubscribeScope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes[email] = scope
	return nil
}

func (f *fakeDeliveryLog) Metrics(_ context.Context, _, _ time.Time, _ string) (entity.EmailMetrics, error) {
	return entity.EmailMetrics{}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, body)
	return nil
}

// fakeTransport delivers via a per-call function so tests can script
// failures per attempt.
type fakeTransport struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, to, templateID string) error
}

func (f *fakeTransport) Deliver(_ context.Context, to, templateID string, _ map[string]any) error {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(call, to, templateID)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
