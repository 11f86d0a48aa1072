package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

func pendingJob(id string, priority entity.EmailPriority, scheduledAt *time.Time) *entity.EmailJob {
	return &entity.EmailJob{
		ID:          id,
		To:          id + "@example.com",
		TemplateID:  "welcome",
		Priority:    priority,
		Category:    entity.CategoryTransactional,
		MaxAttempts: 3,
		Status:      entity.StatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}
}

func TestQueueDueOrdersByPriority(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	ctx := context.Background()

	q.Enqueue(ctx, pendingJob("low", entity.PriorityLow, nil))
	q.Enqueue(ctx, pendingJob("urgent", entity.PriorityUrgent, nil))
	q.Enqueue(ctx, pendingJob("normal", entity.PriorityNormal, nil))
	q.Enqueue(ctx, pendingJob("high", entity.PriorityHigh, nil))

	batch := q.Due(time.Now())
	require.Len(t, batch, 4)
	assert.Equal(t, "urgent", batch[0].ID)
	assert.Equal(t, "high", batch[1].ID)
	assert.Equal(t, "normal", batch[2].ID)
	assert.Equal(t, "low", batch[3].ID)
}

func TestQueueDueIsStableWithinPriority(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	ctx := context.Background()

	q.Enqueue(ctx, pendingJob("first", entity.PriorityNormal, nil))
	q.Enqueue(ctx, pendingJob("second", entity.PriorityNormal, nil))
	q.Enqueue(ctx, pendingJob("third", entity.PriorityNormal, nil))

	batch := q.Due(time.Now())
	require.Len(t, batch, 3)
	assert.Equal(t, "first", batch[0].ID)
	assert.Equal(t, "second", batch[1].ID)
	assert.Equal(t, "third", batch[2].ID)
}

func TestQueueDueSkipsScheduledAndNonPending(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	ctx := context.Background()
	now := time.Now()

	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	q.Enqueue(ctx, pendingJob("later", entity.PriorityNormal, &future))
	q.Enqueue(ctx, pendingJob("ready", entity.PriorityNormal, &past))
	q.Enqueue(ctx, pendingJob("unscheduled", entity.PriorityNormal, nil))

	sent := pendingJob("done", entity.PriorityUrgent, nil)
	sent.Status = entity.StatusSent
	q.Enqueue(ctx, sent)

	ids := map[string]bool{}
	for _, j := range q.Due(now) {
		ids[j.ID] = true
	}
	assert.Equal(t, map[string]bool{"ready": true, "unscheduled": true}, ids)
}

func TestQueueUpdateAndGetReturnCopies(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	ctx := context.Background()
	q.Enqueue(ctx, pendingJob("a", entity.PriorityNormal, nil))

	ok := q.Update("a", func(j *entity.EmailJob) {
		j.Status = entity.StatusProcessing
		j.Attempts = 1
	})
	require.True(t, ok)

	got, found := q.Get("a")
	require.True(t, found)
	assert.Equal(t, entity.StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// Mutating the copy must not touch the stored job.
	got.Status = entity.StatusFailed
	again, _ := q.Get("a")
	assert.Equal(t, entity.StatusProcessing, again.Status)

	assert.False(t, q.Update("missing", func(j *entity.EmailJob) {}))
}

func TestQueueCompactRemovesTerminalJobs(t *testing.T) {
	q := NewJobQueue(nil, "", nil)
	ctx := context.Background()

	q.Enqueue(ctx, pendingJob("keep", entity.PriorityNormal, nil))
	done := pendingJob("sent", entity.PriorityNormal, nil)
	done.Status = entity.StatusSent
	q.Enqueue(ctx, done)
	dead := pendingJob("failed", entity.PriorityNormal, nil)
	dead.Status = entity.StatusFailed
	q.Enqueue(ctx, dead)

	removed := q.Compact()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, q.Len())

	_, found := q.Get("sent")
	assert.False(t, found)
	_, found = q.Get("keep")
	assert.True(t, found)
}
