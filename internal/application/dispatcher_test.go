package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/pkg/mailer"
)

func newTestDispatcher(q *JobQueue, tr mailer.Transport, log *fakeDeliveryLog, pub *fakePublisher) *Dispatcher {
	return &Dispatcher{
		Queue:            q,
		Transport:        tr,
		Log:              log,
		Events:           pub,
		TransportTimeout: time.Second,
		BackoffCeiling:   24 * time.Hour,
	}
}

func TestDispatcherSendsDueJob(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	tr := &fakeTransport{}
	log := newFakeDeliveryLog()
	pub := &fakePublisher{}
	d := newTestDispatcher(q, tr, log, pub)

	ctx := context.Background()
	q.Enqueue(ctx, pendingJob("j1", entity.PriorityNormal, nil))

	processed := d.Drain(ctx)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, tr.callCount())

	// Terminal jobs are compacted out of the live queue; the durable
	// record is in the delivery log.
	_, found := q.Get("j1")
	assert.False(t, found)
	require.Len(t, log.sent, 1)
	assert.Equal(t, entity.StatusSent, log.sent[0].Status)
	assert.NotNil(t, log.sent[0].SentAt)
	assert.Equal(t, 1, log.sent[0].Attempts)
	assert.Len(t, pub.events, 1)
}

func TestDispatcherRetriesWithBackoff(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	tr := &fakeTransport{fn: func(call int, _, _ string) error {
		return errors.New("smtp timeout")
	}}
	log := newFakeDeliveryLog()
	d := newTestDispatcher(q, tr, log, &fakePublisher{})

	ctx := context.Background()
	q.Enqueue(ctx, pendingJob("j1", entity.PriorityNormal, nil))

	before := time.Now()
	d.Drain(ctx)

	job, found := q.Get("j1")
	require.True(t, found)
	assert.Equal(t, entity.StatusPending, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, "smtp timeout", job.Error)
	require.NotNil(t, job.ScheduledAt)

	// First retry lands ~2 minutes out.
	wait := job.ScheduledAt.Sub(before)
	assert.InDelta(t, (2 * time.Minute).Seconds(), wait.Seconds(), 5)

	// Not due yet, so another drain must not re-attempt it.
	d.Drain(ctx)
	assert.Equal(t, 1, tr.callCount())
}

func TestDispatcherStopsAtMaxAttempts(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	tr := &fakeTransport{fn: func(call int, _, _ string) error {
		return errors.New("mailbox busy")
	}}
	log := newFakeDeliveryLog()
	pub := &fakePublisher{}
	d := newTestDispatcher(q, tr, log, pub)

	ctx := context.Background()
	job := pendingJob("j1", entity.PriorityHigh, nil)
	job.MaxAttempts = 3
	q.Enqueue(ctx, job)

	for i := 0; i < 5; i++ {
		d.Drain(ctx)
		// Clear the retry schedule so the next drain picks it up again.
		q.Update("j1", func(j *entity.EmailJob) { j.ScheduledAt = nil })
	}

	assert.Equal(t, 3, tr.callCount())
	require.Len(t, log.failed, 1)
	assert.Equal(t, entity.StatusFailed, log.failed[0].Status)
	assert.Equal(t, 3, log.failed[0].Attempts)
	_, found := q.Get("j1")
	assert.False(t, found)
}

func TestDispatcherPermanentErrorShortCircuits(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	tr := &fakeTransport{fn: func(call int, _, _ string) error {
		return &mailer.PermanentError{Reason: "unknown template"}
	}}
	log := newFakeDeliveryLog()
	d := newTestDispatcher(q, tr, log, &fakePublisher{})

	ctx := context.Background()
	q.Enqueue(ctx, pendingJob("j1", entity.PriorityNormal, nil))
	d.Drain(ctx)

	assert.Equal(t, 1, tr.callCount())
	require.Len(t, log.failed, 1)
	assert.Equal(t, 1, log.failed[0].Attempts)
}

func TestDispatcherBackoffDoublesAndCaps(t *testing.T) {
	d := &Dispatcher{BackoffCeiling: 24 * time.Hour}

	assert.Equal(t, 2*time.Minute, d.backoff(1))
	assert.Equal(t, 4*time.Minute, d.backoff(2))
	assert.Equal(t, 8*time.Minute, d.backoff(3))
	assert.Equal(t, 1024*time.Minute, d.backoff(10))
	assert.Equal(t, 24*time.Hour, d.backoff(11))
	assert.Equal(t, 24*time.Hour, d.backoff(50))

	short := &Dispatcher{BackoffCeiling: 10 * time.Minute}
	assert.Equal(t, 8*time.Minute, short.backoff(3))
	assert.Equal(t, 10*time.Minute, short.backoff(4))
}

func TestDispatcherDrainHonorsCancelledContext(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	tr := &fakeTransport{}
	d := newTestDispatcher(q, tr, newFakeDeliveryLog(), &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q.Enqueue(context.Background(), pendingJob("j1", entity.PriorityNormal, nil))
	q.Enqueue(context.Background(), pendingJob("j2", entity.PriorityNormal, nil))
	d.Drain(ctx)

	assert.Equal(t, 0, tr.callCount())
	assert.Equal(t, 2, q.Len())
}
