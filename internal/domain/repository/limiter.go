package repository

import (
	"context"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// CampaignLimiter is the cross-instance dedup / rate limiter for campaign
// sends. The backing store is shared by all process instances and is the
// sole source of truth for deduplication; the in-memory queue is not.
type CampaignLimiter interface {
	// ShouldSkip reports whether a cooldown marker exists for
	// (userID, campaign.ID). Implementations must fail permissive: if the
	// store is unreachable, return false (treat as "not yet sent") so an
	// outage degrades to possible duplicates rather than lost campaigns.
	ShouldSkip(ctx context.Context, userID string, campaign entity.RetentionCampaign) bool

	// SendCount returns the lifetime send count for (userID, campaignID),
	// 0 if absent.
	SendCount(ctx context.Context, userID, campaignID string) (int, error)

	// RecordSend sets the cooldown marker and atomically increments the
	// lifetime counter, returning the post-increment count. Atomicity of
	// the increment is what enforces MaxSends under concurrent triggers.
	RecordSend(ctx context.Context, userID string, campaign entity.RetentionCampaign) (int, error)
}
