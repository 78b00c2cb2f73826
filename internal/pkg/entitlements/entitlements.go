package entitlements

import "strings"

type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

// StartingCredits returns the credit balance a newly created user on the
// given tier begins with.
func StartingCredits(tier Tier) int {
	switch tier {
	case TierPro:
		return ReplenishCredits(TierPro)
	default:
		return 3
	}
}

// ReplenishCredits returns the balance a tier is reset to on a
// successful checkout or renewal.
func ReplenishCredits(tier Tier) int {
	switch tier {
	case TierPro:
		return 100
	default:
		return 3
	}
}

// Normalize maps arbitrary tier strings to a known tier, defaulting to FREE.
func Normalize(raw string) Tier {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(TierPro):
		return TierPro
	default:
		return TierFree
	}
}
