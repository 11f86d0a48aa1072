package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/internal/domain/repository"
)

var (
	ErrRecipientSuppressed = errors.New("recipient is on the unsubscribe list")
	ErrInvalidEvent        = errors.New("unknown engagement event")
	ErrInvalidScope        = errors.New("unknown unsubscribe scope")
)

// SendOptions tunes one-off transactional sends.
type SendOptions struct {
	Priority    entity.EmailPriority
	ScheduledAt *time.Time
}

// MarketingOptions tunes one-off marketing sends.
type MarketingOptions struct {
	ScheduledAt *time.Time
	Segment     string
}

// MailService is the engine's public surface: one-off sends, campaign
// triggers, unsubscribes, engagement tracking and metrics. All paths only
// enqueue; delivery happens on the dispatcher's clock.
type MailService struct {
	Queue    *JobQueue
	Gate     *ConsentGate
	Registry *CampaignRegistry
	Limiter  repository.CampaignLimiter

	Suppression repository.SuppressionList
	Consent     repository.ConsentStore
	Identity    repository.IdentityResolver
	Log         repository.DeliveryLog
	Events      EventPublisher
	Logger      *logrus.Logger
}

func newJob(to, templateID string, vars map[string]any, category entity.EmailCategory, priority entity.EmailPriority, scheduledAt *time.Time) *entity.EmailJob {
	if priority == "" {
		priority = entity.PriorityNormal
	}
	return &entity.EmailJob{
		ID:          uuid.NewString(),
		To:          to,
		TemplateID:  templateID,
		Variables:   vars,
		Category:    category,
		Priority:    priority,
		ScheduledAt: scheduledAt,
		MaxAttempts: category.DefaultMaxAttempts(),
		Status:      entity.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// SendTransactional enqueues an operational email and returns the job id.
// The only refusal is a global unsubscribe; store outages fail open.
func (s *MailService) SendTransactional(ctx context.Context, to, templateID string, vars map[string]any, opts SendOptions) (string, error) {
	if !s.Gate.CanSend(ctx, to, entity.CategoryTransactional) {
		return "", ErrRecipientSuppressed
	}
	job := newJob(to, templateID, vars, entity.CategoryTransactional, opts.Priority, opts.ScheduledAt)
	s.Queue.Enqueue(ctx, job)
	return job.ID, nil
}

// SendMarketing enqueues a marketing email. A missing consent record is a
// silent no-op: the empty job id signals "skipped", not an error. The warn
// log is what surfaces misconfigured consent data.
func (s *MailService) SendMarketing(ctx context.Context, to, templateID string, vars map[string]any, opts MarketingOptions) (string, error) {
	if !s.Gate.CanSend(ctx, to, entity.CategoryMarketing) {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"to":       to,
				"template": templateID,
			}).Warn("marketing send skipped: no consent")
		}
		return "", nil
	}
	if opts.Segment != "" {
		if vars == nil {
			vars = map[string]any{}
		}
		vars["segment"] = opts.Segment
	}
	job := newJob(to, templateID, vars, entity.CategoryMarketing, entity.PriorityLow, opts.ScheduledAt)
	s.Queue.Enqueue(ctx, job)
	return job.ID, nil
}

// TriggerCampaign evaluates every enabled campaign listening on the
// lifecycle trigger and enqueues at most one job per campaign, gated by
// segment, consent, cooldown and the lifetime send cap. The cap is
// enforced by the store's atomic counter, so concurrent triggers across
// instances cannot overshoot it.
func (s *MailService) TriggerCampaign(ctx context.Context, userID, email string, trigger entity.CampaignTrigger, properties map[string]any) ([]string, error) {
	campaigns := s.Registry.For(trigger)
	if len(campaigns) == 0 {
		if s.Logger != nil {
			s.Logger.WithField("trigger", string(trigger)).Debug("no campaigns for trigger")
		}
		return nil, nil
	}

	var jobIDs []string

	for _, c := range campaigns {
		if !c.Matches(properties) {
			continue
		}
		if s.Limiter.ShouldSkip(ctx, userID, c) {
			s.debugSkip(userID, c.ID, "cooldown active")
			continue
		}
		if !s.Gate.CanSendUser(ctx, userID, email, c.Category) {
			s.debugSkip(userID, c.ID, "consent gate refused")
			continue
		}

		count, err := s.Limiter.RecordSend(ctx, userID, c)
		if err != nil {
			// Permissive on store outage: possible duplicate beats a
			// dropped campaign. Logged so the policy stays visible.
			if s.Logger != nil {
				s.Logger.WithError(err).WithFields(logrus.Fields{
					"user_id":     userID,
					"campaign_id": c.ID,
				}).Warn("dedup store unavailable, enqueueing anyway")
			}
		} else if count > c.MaxSends {
			s.debugSkip(userID, c.ID, "send cap reached")
			continue
		}

		var scheduledAt *time.Time
		if c.Delay > 0 {
			at := time.Now().Add(c.Delay)
			scheduledAt = &at
		}
		job := newJob(email, c.TemplateID, properties, c.Category, c.Priority, scheduledAt)
		job.CampaignID = c.ID
		job.UserID = userID
		s.Queue.Enqueue(ctx, job)
		jobIDs = append(jobIDs, job.ID)

		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"user_id":     userID,
				"campaign_id": c.ID,
				"job_id":      job.ID,
				"trigger":     string(trigger),
			}).Info("campaign job enqueued")
		}
	}
	return jobIDs, nil
}

func (s *MailService) debugSkip(userID, campaignID, reason string) {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"campaign_id": campaignID,
			"reason":      reason,
		}).Debug("campaign trigger skipped")
	}
}

// Unsubscribe removes the address from future sends. Scope "all" adds it
// to the global suppression set; scope "marketing" only revokes the
// marketing consent record.
func (s *MailService) Unsubscribe(ctx context.Context, email string, scope entity.UnsubscribeScope) error {
	switch scope {
	case entity.ScopeAll:
		if err := s.Suppression.Add(ctx, email); err != nil {
			return fmt.Errorf("add to suppression list: %w", err)
		}
		// Best-effort consent revocation alongside the hard block.
		if userID, err := s.Identity.UserIDForEmail(ctx, email); err == nil && userID != "" {
			if err := s.Consent.RecordConsentChange(ctx, userID, false); err != nil && s.Logger != nil {
				s.Logger.WithError(err).WithField("user_id", userID).Warn("consent revocation failed")
			}
		}
	case entity.ScopeMarketing:
		userID, err := s.Identity.UserIDForEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("resolve identity: %w", err)
		}
		if userID == "" {
			if s.Logger != nil {
				s.Logger.WithField("email", email).Info("marketing unsubscribe for unknown identity ignored")
			}
			return nil
		}
		if err := s.Consent.RecordConsentChange(ctx, userID, false); err != nil {
			return fmt.Errorf("revoke consent: %w", err)
		}
	default:
		return ErrInvalidScope
	}

	if s.Log != nil {
		if err := s.Log.RecordUnsubscribe(ctx, email, scope); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("email", email).Warn("unsubscribe log write failed")
		}
	}
	return nil
}

// TrackEngagement records a delivery-provider ping against a dispatched
// job. Unknown job ids are logged and ignored: pings routinely arrive
// after the in-memory job was compacted, and the delivery-log update below
// still lands in that case. Opened/clicked are first-event-wins.
func (s *MailService) TrackEngagement(ctx context.Context, jobID string, event entity.EngagementEvent, metadata map[string]any) error {
	if !event.Valid() {
		return ErrInvalidEvent
	}

	now := time.Now().UTC()
	var recipient string
	found := s.Queue.Update(jobID, func(j *entity.EmailJob) {
		if j.Status != entity.StatusSent {
			return
		}
		recipient = j.To
		switch event {
		case entity.EventOpened:
			if j.OpenedAt == nil {
				j.OpenedAt = &now
			}
		case entity.EventClicked:
			if j.ClickedAt == nil {
				j.ClickedAt = &now
			}
		}
	})
	if !found && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"job_id": jobID,
			"event":  string(event),
		}).Info("engagement for unknown job ignored")
	}

	if s.Log != nil {
		if err := s.Log.RecordEngagement(ctx, jobID, event, now); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("job_id", jobID).Warn("engagement log write failed")
		}
	}

	if event == entity.EventBounced || event == entity.EventComplained {
		s.escalateSuppression(ctx, jobID, recipient, metadata, event)
	}

	if s.Events != nil {
		ev := map[string]any{
			"type":   "email." + string(event),
			"job_id": jobID,
			"at":     now,
		}
		if err := s.Events.PublishJSON(ctx, ev); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("job_id", jobID).Warn("engagement event publish failed")
		}
	}
	return nil
}

// escalateSuppression puts hard-bouncing or complaining addresses on the
// global unsubscribe list. The recipient comes from the live job when
// available, otherwise from the provider metadata.
func (s *MailService) escalateSuppression(ctx context.Context, jobID, recipient string, metadata map[string]any, event entity.EngagementEvent) {
	if recipient == "" {
		recipient, _ = metadata["email"].(string)
	}
	if recipient == "" {
		if s.Logger != nil {
			s.Logger.WithField("job_id", jobID).Warn("cannot suppress: recipient unknown")
		}
		return
	}
	if err := s.Suppression.Add(ctx, recipient); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("recipient", recipient).Warn("suppression escalation failed")
		}
		return
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"recipient": recipient,
			"event":     string(event),
		}).Info("recipient suppressed after delivery signal")
	}
}

// Metrics aggregates the delivery log over [start, end).
func (s *MailService) Metrics(ctx context.Context, start, end time.Time, templateID string) (entity.EmailMetrics, error) {
	return s.Log.Metrics(ctx, start, end, templateID)
}
