package rank

import "strings"

type Tier int

const (
	TierUnknown Tier = iota
	TierIron
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
	TierEmerald
	TierDiamond
	TierMaster
	TierGrandmaster
	TierChallenger
)

var tierNames = [...]string{
	TierUnknown:     "",
	TierIron:        "IRON",
	TierBronze:      "BRONZE",
	TierSilver:      "SILVER",
	TierGold:        "GOLD",
	TierPlatinum:    "PLATINUM",
	TierEmerald:     "EMERALD",
	TierDiamond:     "DIAMOND",
	TierMaster:      "MASTER",
	TierGrandmaster: "GRANDMASTER",
	TierChallenger:  "CHALLENGER",
}

func ParseTier(s string) Tier {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TierUnknown
	}
	for t, name := range tierNames {
		if name == s {
			return Tier(t)
		}
	}
	return TierUnknown
}

func (t Tier) String() string {
	if t < TierUnknown || int(t) >= len(tierNames) {
		return ""
	}
	return tierNames[t]
}

// OrDefault substitutes SILVER for an unknown tier, the reference tier used
// when a participant carries no rank.
func (t Tier) OrDefault() Tier {
	if t == TierUnknown {
		return TierSilver
	}
	return t
}

type Division int

const (
	DivisionUnknown Division = iota
	DivisionIV
	DivisionIII
	DivisionII
	DivisionI
)

func ParseDivision(s string) Division {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IV":
		return DivisionIV
	case "III":
		return DivisionIII
	case "II":
		return DivisionII
	case "I":
		return DivisionI
	default:
		return DivisionUnknown
	}
}
