package application

import (
	"context"
	"errors"
	"expvar"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/internal/domain/repository"
	"github.com/craftfolio/mailroom/pkg/mailer"
)

// EventPublisher receives job lifecycle events for the analytics-sync
// stream. helpers.RabbitPublisher satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// JobEvent is the payload published on every terminal transition.
type JobEvent struct {
	Type       string    `json:"type"` // email.sent | email.failed
	JobID      string    `json:"job_id"`
	Recipient  string    `json:"recipient"`
	TemplateID string    `json:"template_id"`
	Category   string    `json:"category"`
	CampaignID string    `json:"campaign_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Counters surfaced on /debug/vars.
var (
	statDispatched = expvar.NewInt("mail_dispatched")
	statSent       = expvar.NewInt("mail_sent")
	statFailed     = expvar.NewInt("mail_failed")
	statRetried    = expvar.NewInt("mail_retried")
)

// Dispatcher drains due jobs from the queue on a fixed interval and drives
// each through pending -> processing -> {sent | pending(retry) | failed}.
// It is the only component that transitions job status.
type Dispatcher struct {
	Queue     *JobQueue
	Transport mailer.Transport
	Log       repository.DeliveryLog
	Events    EventPublisher
	Indexer   *DeliveryIndexer
	Logger    *logrus.Logger

	// Limiter caps outbound transport calls per second.
	Limiter *rate.Limiter

	Interval         time.Duration
	TransportTimeout time.Duration
	BackoffCeiling   time.Duration

	draining atomic.Bool
}

// Run ticks until ctx is cancelled. Drains run synchronously on the loop
// goroutine; a drain that outlasts the interval simply absorbs the missed
// ticks.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if d.Logger != nil {
		d.Logger.WithField("interval", interval.String()).Info("dispatcher started")
	}
	for {
		select {
		case <-ctx.Done():
			if d.Logger != nil {
				d.Logger.Info("dispatcher stopped")
			}
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain processes one batch of due jobs. It is single-flight: a call while
// a prior drain is still executing returns immediately. Exposed so the
// debug surface and tests can force a tick.
func (d *Dispatcher) Drain(ctx context.Context) int {
	if !d.draining.CompareAndSwap(false, true) {
		return 0
	}
	defer d.draining.Store(false)

	batch := d.Queue.Due(time.Now())
	for i := range batch {
		if ctx.Err() != nil {
			break
		}
		d.process(ctx, batch[i].ID)
	}
	if removed := d.Queue.Compact(); removed > 0 && d.Logger != nil {
		d.Logger.WithField("removed", removed).Debug("compacted terminal jobs")
	}
	return len(batch)
}

func (d *Dispatcher) process(ctx context.Context, jobID string) {
	var job entity.EmailJob
	found := d.Queue.Update(jobID, func(j *entity.EmailJob) {
		if j.Status != entity.StatusPending {
			return
		}
		j.Status = entity.StatusProcessing
		j.Attempts++
		job = *j
	})
	if !found || job.Status != entity.StatusProcessing {
		return
	}
	statDispatched.Add(1)

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			// Shutting down mid-batch; put the job back for the next run.
			d.Queue.Update(jobID, func(j *entity.EmailJob) {
				j.Status = entity.StatusPending
				j.Attempts--
			})
			return
		}
	}

	timeout := d.TransportTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	err := d.Transport.Deliver(dctx, job.To, job.TemplateID, job.Variables)
	cancel()

	now := time.Now()
	if err == nil {
		d.Queue.Update(jobID, func(j *entity.EmailJob) {
			j.Status = entity.StatusSent
			j.SentAt = &now
			j.Error = ""
			job = *j
		})
		statSent.Add(1)
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"job_id":   job.ID,
				"to":       job.To,
				"template": job.TemplateID,
				"attempts": job.Attempts,
			}).Info("email sent")
		}
		d.afterTerminal(ctx, job, "email.sent")
		return
	}

	var perm *mailer.PermanentError
	permanent := errors.As(err, &perm)

	if permanent || job.Attempts >= job.MaxAttempts {
		d.Queue.Update(jobID, func(j *entity.EmailJob) {
			j.Status = entity.StatusFailed
			j.Error = err.Error()
			job = *j
		})
		statFailed.Add(1)
		if d.Logger != nil {
			d.Logger.WithError(err).WithFields(logrus.Fields{
				"job_id":    job.ID,
				"to":        job.To,
				"attempts":  job.Attempts,
				"permanent": permanent,
			}).Error("email delivery failed permanently")
		}
		d.afterTerminal(ctx, job, "email.failed")
		return
	}

	next := now.Add(d.backoff(job.Attempts))
	d.Queue.Update(jobID, func(j *entity.EmailJob) {
		j.Status = entity.StatusPending
		j.ScheduledAt = &next
		j.Error = err.Error()
	})
	statRetried.Add(1)
	if d.Logger != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{
			"job_id":   job.ID,
			"attempts": job.Attempts,
			"retry_at": next.Format(time.RFC3339),
		}).Warn("email delivery failed, retry scheduled")
	}
}

// backoff returns 2^attempts minutes, capped at BackoffCeiling.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	ceiling := d.BackoffCeiling
	if ceiling <= 0 {
		ceiling = 24 * time.Hour
	}
	if attempts > 20 {
		return ceiling
	}
	delay := time.Duration(1<<uint(attempts)) * time.Minute
	if delay > ceiling {
		return ceiling
	}
	return delay
}

func (d *Dispatcher) afterTerminal(ctx context.Context, job entity.EmailJob, eventType string) {
	if d.Log != nil {
		var err error
		if job.Status == entity.StatusSent {
			err = d.Log.RecordSent(ctx, &job)
		} else {
			err = d.Log.RecordFailed(ctx, &job)
		}
		if err != nil && d.Logger != nil {
			d.Logger.WithError(err).WithField("job_id", job.ID).Warn("delivery log write failed")
		}
	}
	if d.Events != nil {
		ev := JobEvent{
			Type:       eventType,
			JobID:      job.ID,
			Recipient:  job.To,
			TemplateID: job.TemplateID,
			Category:   string(job.Category),
			CampaignID: job.CampaignID,
			UserID:     job.UserID,
			Attempts:   job.Attempts,
			Error:      job.Error,
			At:         time.Now().UTC(),
		}
		if err := d.Events.PublishJSON(ctx, ev); err != nil && d.Logger != nil {
			d.Logger.WithError(err).WithField("job_id", job.ID).Warn("event publish failed")
		}
	}
	if d.Indexer != nil {
		_ = d.Indexer.IndexJob(ctx, job)
	}
}
