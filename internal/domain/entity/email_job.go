package entity

import "time"

type EmailCategory string

const (
	CategoryTransactional EmailCategory = "transactional"
	CategoryMarketing     EmailCategory = "marketing"
	CategorySystem        EmailCategory = "system"
	CategoryOnboarding    EmailCategory = "onboarding"
	CategoryRetention     EmailCategory = "retention"
	CategorySupport       EmailCategory = "support"
)

// Operational categories are delivered even without a marketing consent
// record; everything else requires explicit consent.
func (c EmailCategory) Operational() bool {
	switch c {
	case CategoryTransactional, CategorySystem, CategorySupport:
		return true
	}
	return false
}

// DefaultMaxAttempts returns the retry cap for the category. Operational
// mail gets one extra attempt over bulk mail.
func (c EmailCategory) DefaultMaxAttempts() int {
	if c.Operational() {
		return 3
	}
	return 2
}

type EmailPriority string

const (
	PriorityLow    EmailPriority = "low"
	PriorityNormal EmailPriority = "normal"
	PriorityHigh   EmailPriority = "high"
	PriorityUrgent EmailPriority = "urgent"
)

// Rank orders priorities for batch sorting; higher is dispatched first.
func (p EmailPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSent       JobStatus = "sent"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// EmailJob is one queued attempt to deliver a single email to a single
// recipient. The queue owns the job until it reaches a terminal status;
// only the dispatcher transitions Status, and only the engagement tracker
// sets OpenedAt/ClickedAt (on already-sent jobs).
type EmailJob struct {
	ID         string         `json:"id"`
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Variables  map[string]any `json:"variables,omitempty"`

	Category EmailCategory `json:"category"`
	Priority EmailPriority `json:"priority"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`

	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`

	CampaignID string `json:"campaign_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClickedAt *time.Time `json:"clicked_at,omitempty"`
}

// Due reports whether the job is ready for dispatch at the given time.
func (j *EmailJob) Due(now time.Time) bool {
	if j.Status != StatusPending {
		return false
	}
	return j.ScheduledAt == nil || !j.ScheduledAt.After(now)
}

// Terminal reports whether the job has left the live queue's custody.
func (j *EmailJob) Terminal() bool {
	switch j.Status {
	case StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type EngagementEvent string

const (
	EventOpened     EngagementEvent = "opened"
	EventClicked    EngagementEvent = "clicked"
	EventBounced    EngagementEvent = "bounced"
	EventComplained EngagementEvent = "complained"
)

func (e EngagementEvent) Valid() bool {
	switch e {
	case EventOpened, EventClicked, EventBounced, EventComplained:
		return true
	}
	return false
}

type UnsubscribeScope string

const (
	ScopeAll       UnsubscribeScope = "all"
	ScopeMarketing UnsubscribeScope = "marketing"
)
