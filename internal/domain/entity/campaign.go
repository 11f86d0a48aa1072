package entity

import "time"

// CampaignTrigger is a named lifecycle event emitted by the application
// (signup flow, portfolio editor, billing) that retention campaigns listen
// for.
type CampaignTrigger string

const (
	TriggerSignupIncomplete      CampaignTrigger = "signup_incomplete"
	TriggerPortfolioNotCreated   CampaignTrigger = "portfolio_not_created"
	TriggerPortfolioNotPublished CampaignTrigger = "portfolio_not_published"
	TriggerAIFeatureUnused       CampaignTrigger = "ai_feature_unused"
	TriggerInactive7Days         CampaignTrigger = "inactive_7_days"
	TriggerInactive30Days        CampaignTrigger = "inactive_30_days"
	TriggerSubscriptionExpiring  CampaignTrigger = "subscription_expiring"
	TriggerPaymentFailed         CampaignTrigger = "payment_failed"
)

// RetentionCampaign is an immutable catalog entry: when Trigger fires for a
// user, schedule TemplateID after Delay, subject to the per-user MaxSends
// cap and the cross-instance cooldown window.
type RetentionCampaign struct {
	ID         string
	Trigger    CampaignTrigger
	Delay      time.Duration
	TemplateID string
	Category   EmailCategory
	Priority   EmailPriority
	Enabled    bool
	Segment    string // optional target segment tag; empty matches everyone
	MaxSends   int    // lifetime cap per user
}

// Matches reports whether the campaign applies to the trigger properties.
// A campaign with a segment tag only fires when the caller supplies the
// same "segment" property.
func (c RetentionCampaign) Matches(properties map[string]any) bool {
	if c.Segment == "" {
		return true
	}
	seg, _ := properties["segment"].(string)
	return seg == c.Segment
}
