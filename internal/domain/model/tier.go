package model

import "strings"

// SubscriptionTier is the canonical tier enum. The map UI and the billing
// panel historically used different tier vocabularies; every inbound name is
// normalized through ParseTier so only these values exist inside the engine.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierStartup    SubscriptionTier = "startup"
	TierBusiness   SubscriptionTier = "business"
	TierCorporate  SubscriptionTier = "corporate"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// ParseTier normalizes a tier name. Unknown names degrade to TierFree so a
// mistyped tier can never grant bonuses or discounts.
func ParseTier(s string) SubscriptionTier {
	switch SubscriptionTier(strings.ToLower(strings.TrimSpace(s))) {
	case TierBasic:
		return TierBasic
	case TierStartup:
		return TierStartup
	case TierBusiness:
		return TierBusiness
	case TierCorporate:
		return TierCorporate
	case TierPremium:
		return TierPremium
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}
