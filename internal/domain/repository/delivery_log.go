package repository

import (
	"context"
	"time"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// DeliveryLog is the durable terminal-record sink. The live queue drops
// jobs once they are terminal; auditing and the metrics endpoint read from
// here instead.
type DeliveryLog interface {
	RecordSent(ctx context.Context, job *entity.EmailJob) error
	RecordFailed(ctx context.Context, job *entity.EmailJob) error
	RecordEngagement(ctx context.Context, jobID string, event entity.EngagementEvent, at time.Time) error
	RecordUnsubscribe(ctx context.Context, email string, scope entity.UnsubscribeScope) error
	Metrics(ctx context.Context, start, end time.Time, templateID string) (entity.EmailMetrics, error)
}
