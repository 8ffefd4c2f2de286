package plans

import "strings"

// Tier constants (single source of truth)
const (
	TierFree = "FREE"
	TierPro  = "PRO"
)

// NormalizeTier maps arbitrary input to a known tier, defaulting to FREE.
func NormalizeTier(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case TierPro:
		return TierPro
	default:
		return TierFree
	}
}

// PlanTier returns the tier a plan entitles the user to.
// The plan code is authoritative; unknown or missing plans grant FREE.
func PlanTier(p *Plan) string {
	if p == nil {
		return TierFree
	}
	return NormalizeTier(p.Code)
}
