package prompt

// Tier is the quality band derived from the overall score.
type Tier string

const (
	TierGold       Tier = "gold"
	TierSilver     Tier = "silver"
	TierBronze     Tier = "bronze"
	TierUnverified Tier = "unverified"
)

// Lower bounds are inclusive.
const (
	goldMin   = 80
	silverMin = 60
	bronzeMin = 40
)

// TierFor maps an overall score to its tier.
func TierFor(overall int64) Tier {
	switch {
	case overall >= goldMin:
		return TierGold
	case overall >= silverMin:
		return TierSilver
	case overall >= bronzeMin:
		return TierBronze
	default:
		return TierUnverified
	}
}
