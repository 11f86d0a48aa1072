package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategoryRetryBudget(t *testing.T) {
	assert.Equal(t, 3, CategoryTransactional.DefaultMaxAttempts())
	assert.Equal(t, 3, CategorySystem.DefaultMaxAttempts())
	assert.Equal(t, 3, CategorySupport.DefaultMaxAttempts())
	assert.Equal(t, 2, CategoryMarketing.DefaultMaxAttempts())
	assert.Equal(t, 2, CategoryOnboarding.DefaultMaxAttempts())
	assert.Equal(t, 2, CategoryRetention.DefaultMaxAttempts())
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
	// Unknown priorities sink to the bottom instead of failing.
	assert.Equal(t, PriorityLow.Rank(), EmailPriority("mystery").Rank())
}

func TestJobDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	j := &EmailJob{Status: StatusPending}
	assert.True(t, j.Due(now))

	j.ScheduledAt = &future
	assert.False(t, j.Due(now))

	j.ScheduledAt = &past
	assert.True(t, j.Due(now))

	j.Status = StatusProcessing
	assert.False(t, j.Due(now))
}

func TestJobTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusSent:       true,
		StatusFailed:     true,
		StatusCancelled:  true,
	} {
		j := &EmailJob{Status: status}
		assert.Equal(t, want, j.Terminal(), string(status))
	}
}

func TestEngagementEventValid(t *testing.T) {
	assert.True(t, EventOpened.Valid())
	assert.True(t, EventComplained.Valid())
	assert.False(t, EngagementEvent("forwarded").Valid())
}
