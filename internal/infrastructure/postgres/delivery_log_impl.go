package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// DeliveryLog persists terminal job records and engagement updates to
// Postgres. The live queue compacts terminal jobs away; this table is what
// the metrics endpoint and auditing read.
type DeliveryLog struct {
	pool *pgxpool.Pool
}

func NewDeliveryLog(pool *pgxpool.Pool) *DeliveryLog {
	return &DeliveryLog{pool: pool}
}

func (l *DeliveryLog) RecordSent(ctx context.Context, job *entity.EmailJob) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO email_log (job_id, recipient, template_id, category, campaign_id, user_id, status, attempts, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'sent', $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE
		SET status = 'sent', attempts = EXCLUDED.attempts, sent_at = EXCLUDED.sent_at, error = NULL
	`, job.ID, job.To, job.TemplateID, string(job.Category), job.CampaignID, job.UserID,
		job.Attempts, job.SentAt, job.CreatedAt)
	return err
}

func (l *DeliveryLog) RecordFailed(ctx context.Context, job *entity.EmailJob) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO email_log (job_id, recipient, template_id, category, campaign_id, user_id, status, error, attempts, failed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'failed', $7, $8, now(), $9)
		ON CONFLICT (job_id) DO UPDATE
		SET status = 'failed', error = EXCLUDED.error, attempts = EXCLUDED.attempts, failed_at = now()
	`, job.ID, job.To, job.TemplateID, string(job.Category), job.CampaignID, job.UserID,
		job.Error, job.Attempts, job.CreatedAt)
	return err
}

// RecordEngagement writes the event timestamp only if the column is still
// null, mirroring the in-memory first-event-wins rule.
func (l *DeliveryLog) RecordEngagement(ctx context.Context, jobID string, event entity.EngagementEvent, at time.Time) error {
	var column string
	switch event {
	case entity.EventOpened:
		column = "opened_at"
	case entity.EventClicked:
		column = "clicked_at"
	case entity.EventBounced:
		column = "bounced_at"
	case entity.EventComplained:
		column = "complained_at"
	default:
		return fmt.Errorf("unknown engagement event %q", event)
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE email_log SET `+column+` = COALESCE(`+column+`, $2) WHERE job_id = $1`,
		jobID, at)
	return err
}

func (l *DeliveryLog) RecordUnsubscribe(ctx context.Context, email string, scope entity.UnsubscribeScope) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO unsubscribes (email, scope) VALUES ($1, $2)`,
		email, string(scope))
	return err
}

// Metrics aggregates the reporting window. Delivered excludes hard
// bounces; open/click rates are relative to delivered.
func (l *DeliveryLog) Metrics(ctx context.Context, start, end time.Time, templateID string) (entity.EmailMetrics, error) {
	var m entity.EmailMetrics

	row := l.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'sent'),
			count(*) FILTER (WHERE status = 'sent' AND bounced_at IS NULL),
			count(*) FILTER (WHERE opened_at IS NOT NULL),
			count(*) FILTER (WHERE clicked_at IS NOT NULL)
		FROM email_log
		WHERE sent_at >= $1 AND sent_at < $2
		  AND ($3 = '' OR template_id = $3)
	`, start, end, templateID)
	if err := row.Scan(&m.Sent, &m.Delivered, &m.Opened, &m.Clicked); err != nil {
		return entity.EmailMetrics{}, err
	}

	row = l.pool.QueryRow(ctx, `
		SELECT count(*) FROM unsubscribes WHERE created_at >= $1 AND created_at < $2
	`, start, end)
	if err := row.Scan(&m.Unsubscribed); err != nil {
		return entity.EmailMetrics{}, err
	}

	if m.Delivered > 0 {
		m.OpenRate = float64(m.Opened) / float64(m.Delivered)
		m.ClickRate = float64(m.Clicked) / float64(m.Delivered)
	}
	return m, nil
}
