package grief

import (
	"os"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// DamageBand maps a damage-per-minute ratio floor to a penalty. Bands are
// checked in order; the first band whose MinRatio the ratio reaches wins.
type DamageBand struct {
	MinRatio float64 `json:"min_ratio" validate:"gte=0"`
	Penalty  float64 `json:"penalty" validate:"gte=0"`
}

// Params holds every tunable of the scorer. Shares are fractions of the game
// duration; weights multiply per-minute differences.
type Params struct {
	LossAmplifier       float64 `json:"loss_amplifier" validate:"gt=0"`
	WinAmplifier        float64 `json:"win_amplifier" validate:"gt=0"`
	MinGameScore        float64 `json:"min_game_score"`
	ExpectedGameMinutes float64 `json:"expected_game_minutes" validate:"gt=0"`
	MinDurationFactor   float64 `json:"min_duration_factor" validate:"gt=0"`
	MaxDurationFactor   float64 `json:"max_duration_factor" validate:"gtefield=MinDurationFactor"`

	TeamDeathBurdenWeight    float64 `json:"team_death_burden_weight"`
	DeathOutlierWeight       float64 `json:"death_outlier_weight"`
	RelativeBonusWeight      float64 `json:"relative_bonus_weight"`
	ObjectiveDisparityWeight float64 `json:"objective_disparity_weight"`
	ObjectiveDisparityCap    float64 `json:"objective_disparity_cap" validate:"gte=0"`
	BoostedWeight            float64 `json:"boosted_weight"`

	TankHealPerMin  float64 `json:"tank_heal_per_min"`
	TankArmorPerMin float64 `json:"tank_armor_per_min"`

	VisionWeight          float64 `json:"vision_weight"`
	SupportVisionPenalty  float64 `json:"support_vision_penalty" validate:"lte=0"`
	VisionActivationScale float64 `json:"vision_activation_scale" validate:"gt=0"`
	VisionShortfall       float64 `json:"vision_shortfall" validate:"gte=0"`

	CollapseWeight         float64 `json:"collapse_weight"`
	CollapseExcess         float64 `json:"collapse_excess" validate:"gt=0"`
	CleanEarlyBonus        float64 `json:"clean_early_bonus"`
	CleanEarlyMaxDeaths    int     `json:"clean_early_max_deaths" validate:"gte=0"`
	TeamVsPlayerDeathRatio float64 `json:"team_vs_player_death_ratio" validate:"gt=0"`

	HardCarryBonus      float64 `json:"hard_carry_bonus" validate:"lte=0"`
	HardCarryTeamDeaths int     `json:"hard_carry_team_deaths"`
	HardCarryDeathShare float64 `json:"hard_carry_death_share"`

	AFKEarlyPenalty float64 `json:"afk_early_penalty"`
	AFKMidPenalty   float64 `json:"afk_mid_penalty"`
	AFKLatePenalty  float64 `json:"afk_late_penalty"`
	AFKEarlyShare   float64 `json:"afk_early_share" validate:"gte=0,lte=1"`
	AFKMidShare     float64 `json:"afk_mid_share" validate:"gte=0,lte=1"`

	// AFKCapShare bounds the AFK penalty as a share of the game score with the
	// win/loss amplifier and duration factor applied.
	AFKCapShare float64 `json:"afk_cap_share" validate:"gte=0,lte=1"`

	// FullGameShare is the time-played share below which a player is exempt
	// from the low-damage check and excluded from the team damage average.
	FullGameShare float64      `json:"full_game_share" validate:"gte=0,lte=1"`
	DamageBands   []DamageBand `json:"damage_bands" validate:"min=1,dive"`

	HighTeamImpact float64 `json:"high_team_impact" validate:"gte=0"`
}

func DefaultParams() Params {
	return Params{
		LossAmplifier:       1.25,
		WinAmplifier:        0.75,
		MinGameScore:        -50,
		ExpectedGameMinutes: 30,
		MinDurationFactor:   0.75,
		MaxDurationFactor:   1.25,

		TeamDeathBurdenWeight:    40,
		DeathOutlierWeight:       25,
		RelativeBonusWeight:      30,
		ObjectiveDisparityWeight: 35,
		ObjectiveDisparityCap:    40,
		BoostedWeight:            45,

		TankHealPerMin:  95,
		TankArmorPerMin: 3.0,

		VisionWeight:          8,
		SupportVisionPenalty:  -10,
		VisionActivationScale: 25,
		VisionShortfall:       0.25,

		CollapseWeight:         70,
		CollapseExcess:         1.3,
		CleanEarlyBonus:        35,
		CleanEarlyMaxDeaths:    2,
		TeamVsPlayerDeathRatio: 2.5,

		HardCarryBonus:      -30,
		HardCarryTeamDeaths: 24,
		HardCarryDeathShare: 0.7,

		AFKEarlyPenalty: 160,
		AFKMidPenalty:   120,
		AFKLatePenalty:  90,
		AFKEarlyShare:   0.65,
		AFKMidShare:     0.85,
		AFKCapShare:     0.6,

		FullGameShare: 0.85,
		DamageBands: []DamageBand{
			{MinRatio: 0.8, Penalty: 0},
			{MinRatio: 0.6, Penalty: 5},
			{MinRatio: 0.4, Penalty: 15},
			{MinRatio: 0.2, Penalty: 35},
			{MinRatio: 0, Penalty: 70},
		},

		HighTeamImpact: 50,
	}
}

// LoadParams reads a JSON override file on top of DefaultParams. Keys missing
// from the file keep their default. An empty path returns the defaults.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, errors.Wrapf(err, "read grief params %s", path)
	}
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return Params{}, errors.Wrapf(err, "decode grief params %s", path)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return errors.Wrap(err, "invalid grief params")
	}
	return nil
}
