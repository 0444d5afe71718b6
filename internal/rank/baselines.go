package rank

// Baseline holds rank-normalized reference values. Figures approximate public
// solo queue averages and are meant for normalization only.
type Baseline struct {
	VisionPerMin        float64
	SupportVisionPerMin float64
	TeamDeathsPerMin    float64
	OutlierMultiplier   float64
	MMRBase             int
}

var baselines = [...]Baseline{
	TierUnknown:     {VisionPerMin: 0.55, SupportVisionPerMin: 1.0, TeamDeathsPerMin: 1.05, OutlierMultiplier: 1.7, MMRBase: 1000},
	TierIron:        {VisionPerMin: 0.45, SupportVisionPerMin: 0.8, TeamDeathsPerMin: 1.20, OutlierMultiplier: 1.5, MMRBase: 800},
	TierBronze:      {VisionPerMin: 0.50, SupportVisionPerMin: 0.9, TeamDeathsPerMin: 1.15, OutlierMultiplier: 1.6, MMRBase: 950},
	TierSilver:      {VisionPerMin: 0.55, SupportVisionPerMin: 1.0, TeamDeathsPerMin: 1.05, OutlierMultiplier: 1.7, MMRBase: 1100},
	TierGold:        {VisionPerMin: 0.65, SupportVisionPerMin: 1.2, TeamDeathsPerMin: 0.95, OutlierMultiplier: 1.8, MMRBase: 1250},
	TierPlatinum:    {VisionPerMin: 0.75, SupportVisionPerMin: 1.4, TeamDeathsPerMin: 0.85, OutlierMultiplier: 1.9, MMRBase: 1450},
	TierEmerald:     {VisionPerMin: 0.80, SupportVisionPerMin: 1.5, TeamDeathsPerMin: 0.80, OutlierMultiplier: 1.95, MMRBase: 1600},
	TierDiamond:     {VisionPerMin: 0.85, SupportVisionPerMin: 1.6, TeamDeathsPerMin: 0.75, OutlierMultiplier: 2.0, MMRBase: 1750},
	TierMaster:      {VisionPerMin: 0.90, SupportVisionPerMin: 1.8, TeamDeathsPerMin: 0.70, OutlierMultiplier: 2.0, MMRBase: 2000},
	TierGrandmaster: {VisionPerMin: 0.90, SupportVisionPerMin: 1.8, TeamDeathsPerMin: 0.70, OutlierMultiplier: 2.1, MMRBase: 2150},
	TierChallenger:  {VisionPerMin: 0.95, SupportVisionPerMin: 2.0, TeamDeathsPerMin: 0.68, OutlierMultiplier: 2.2, MMRBase: 2300},
}

var divisionOffsets = [...]int{
	DivisionUnknown: 0,
	DivisionIV:      0,
	DivisionIII:     100,
	DivisionII:      200,
	DivisionI:       300,
}

// For returns the baseline row of t. Out-of-range values fall back to the
// TierUnknown row.
func For(t Tier) Baseline {
	if t < TierUnknown || int(t) >= len(baselines) {
		return baselines[TierUnknown]
	}
	return baselines[t]
}

// Estimate maps a rank entry onto a scalar rating. It reports false when tier
// or division is missing.
func Estimate(tier, division string, leaguePoints int) (int, bool) {
	if tier == "" || division == "" {
		return 0, false
	}
	return For(ParseTier(tier)).MMRBase + divisionOffsets[ParseDivision(division)] + leaguePoints, true
}
