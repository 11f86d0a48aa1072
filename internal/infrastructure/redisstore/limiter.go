package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// Lua script: atomic INCR + refresh PEXPIRE so the counter's retention
// window slides with every send. Read-modify-write would lose increments
// when two instances trigger the same campaign concurrently.
var incrRefreshScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return current
`)

// CampaignLimiter implements the cross-instance dedup/rate limiter on the
// shared Redis store. Cooldown markers expire after Cooldown; lifetime
// counters after CountRetention.
type CampaignLimiter struct {
	rdb            *redis.Client
	logger         *logrus.Logger
	cooldown       time.Duration
	countRetention time.Duration
}

func NewCampaignLimiter(rdb *redis.Client, logger *logrus.Logger, cooldown, countRetention time.Duration) *CampaignLimiter {
	return &CampaignLimiter{
		rdb:            rdb,
		logger:         logger,
		cooldown:       cooldown,
		countRetention: countRetention,
	}
}

func markerKey(userID, campaignID string) string {
	return "campaign:sent:" + userID + ":" + campaignID
}

func counterKey(userID, campaignID string) string {
	return "campaign:count:" + userID + ":" + campaignID
}

// ShouldSkip reports whether the cooldown marker exists. On store errors it
// returns false: availability over strict dedup, a duplicate reminder beats
// never sending one. The degraded path is logged so the tradeoff stays
// observable.
func (l *CampaignLimiter) ShouldSkip(ctx context.Context, userID string, campaign entity.RetentionCampaign) bool {
	n, err := l.rdb.Exists(ctx, markerKey(userID, campaign.ID)).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":     userID,
				"campaign_id": campaign.ID,
			}).Warn("cooldown check failed, treating as not yet sent")
		}
		return false
	}
	return n > 0
}

func (l *CampaignLimiter) SendCount(ctx context.Context, userID, campaignID string) (int, error) {
	v, err := l.rdb.Get(ctx, counterKey(userID, campaignID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// RecordSend sets the cooldown marker and atomically increments the
// lifetime counter. The post-increment count is returned so callers can
// enforce MaxSends without a separate racy read.
func (l *CampaignLimiter) RecordSend(ctx context.Context, userID string, campaign entity.RetentionCampaign) (int, error) {
	if err := l.rdb.Set(ctx, markerKey(userID, campaign.ID), "1", l.cooldown).Err(); err != nil {
		return 0, err
	}
	res, err := incrRefreshScript.Run(ctx, l.rdb,
		[]string{counterKey(userID, campaign.ID)},
		l.countRetention.Milliseconds(),
	).Result()
	if err != nil {
		return 0, err
	}
	count, _ := res.(int64)
	return int(count), nil
}
