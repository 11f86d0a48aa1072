package application

import (
	"sort"
	"time"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// CampaignRegistry is the static trigger -> campaign catalog. It is
// populated once at startup and never mutated afterwards, so lookups need
// no locking.
type CampaignRegistry struct {
	byTrigger map[entity.CampaignTrigger][]entity.RetentionCampaign
}

func NewCampaignRegistry(campaigns ...entity.RetentionCampaign) *CampaignRegistry {
	r := &CampaignRegistry{byTrigger: make(map[entity.CampaignTrigger][]entity.RetentionCampaign)}
	for _, c := range campaigns {
		r.byTrigger[c.Trigger] = append(r.byTrigger[c.Trigger], c)
	}
	return r
}

// For returns the enabled campaigns listening on the trigger.
func (r *CampaignRegistry) For(trigger entity.CampaignTrigger) []entity.RetentionCampaign {
	all := r.byTrigger[trigger]
	out := make([]entity.RetentionCampaign, 0, len(all))
	for _, c := range all {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// All returns every registered campaign, enabled or not, sorted by id.
func (r *CampaignRegistry) All() []entity.RetentionCampaign {
	var out []entity.RetentionCampaign
	for _, list := range r.byTrigger {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultCampaigns is the production catalog for the portfolio-builder
// lifecycle. Delays are measured from the trigger, not from signup.
func DefaultCampaigns() []entity.RetentionCampaign {
	return []entity.RetentionCampaign{
		{
			ID:         "complete-signup",
			Trigger:    entity.TriggerSignupIncomplete,
			Delay:      48 * time.Hour,
			TemplateID: "complete_signup_reminder",
			Category:   entity.CategoryOnboarding,
			Priority:   entity.PriorityNormal,
			Enabled:    true,
			MaxSends:   2,
		},
		{
			ID:         "create-portfolio",
			Trigger:    entity.TriggerPortfolioNotCreated,
			Delay:      24 * time.Hour,
			TemplateID: "create_portfolio_reminder",
			Category:   entity.CategoryOnboarding,
			Priority:   entity.PriorityNormal,
			Enabled:    true,
			MaxSends:   3,
		},
		{
			ID:         "publish-portfolio",
			Trigger:    entity.TriggerPortfolioNotPublished,
			Delay:      48 * time.Hour,
			TemplateID: "publish_portfolio_reminder",
			Category:   entity.CategoryOnboarding,
			Priority:   entity.PriorityNormal,
			Enabled:    true,
			MaxSends:   2,
		},
		{
			ID:         "try-ai-assistant",
			Trigger:    entity.TriggerAIFeatureUnused,
			Delay:      72 * time.Hour,
			TemplateID: "try_ai_assistant",
			Category:   entity.CategoryRetention,
			Priority:   entity.PriorityLow,
			Enabled:    true,
			MaxSends:   1,
		},
		{
			ID:         "we-miss-you",
			Trigger:    entity.TriggerInactive7Days,
			TemplateID: "we_miss_you",
			Category:   entity.CategoryRetention,
			Priority:   entity.PriorityLow,
			Enabled:    true,
			MaxSends:   2,
		},
		{
			ID:         "comeback-offer",
			Trigger:    entity.TriggerInactive30Days,
			TemplateID: "comeback_offer",
			Category:   entity.CategoryRetention,
			Priority:   entity.PriorityLow,
			Enabled:    true,
			Segment:    "free",
			MaxSends:   1,
		},
		{
			ID:         "renew-subscription",
			Trigger:    entity.TriggerSubscriptionExpiring,
			TemplateID: "renew_subscription",
			Category:   entity.CategoryRetention,
			Priority:   entity.PriorityHigh,
			Enabled:    true,
			Segment:    "pro",
			MaxSends:   3,
		},
		{
			ID:         "payment-failed",
			Trigger:    entity.TriggerPaymentFailed,
			Delay:      time.Hour,
			TemplateID: "payment_failed_notice",
			Category:   entity.CategoryRetention,
			Priority:   entity.PriorityHigh,
			Enabled:    true,
			MaxSends:   3,
		},
	}
}
