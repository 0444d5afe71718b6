// Package grief scores how much of a ranked game's outcome was out of the
// evaluated player's hands. Higher scores mean the team, not the player, was
// the problem.
package grief

import (
	"math"

	"github.com/cockroachdb/errors"

	"league-tracker/internal/domain"
	"league-tracker/internal/rank"
)

var ErrPlayerNotInMatch = errors.New("player not in match")

type Outcome string

const (
	OutcomeCakeWalk    Outcome = "CAKE WALK"
	OutcomePassenger   Outcome = "PASSENGER"
	OutcomeHardCarry   Outcome = "HARD CARRY"
	OutcomeLuckyWin    Outcome = "LUCKY WIN"
	OutcomeFairLoss    Outcome = "FAIR LOSS"
	OutcomeInter       Outcome = "INTER"
	OutcomeGriefed     Outcome = "GRIEFED"
	OutcomeMutualGrief Outcome = "MUTUAL GRIEF"
)

type AFKKind string

const (
	AFKPenalty AFKKind = "penalty"
	AFKFlag    AFKKind = "afk_flag"
	AFKEarly   AFKKind = "early"
	AFKMid     AFKKind = "mid"
)

type AFKEvent struct {
	PUUID string  `json:"puuid"`
	Name  string  `json:"name,omitempty"`
	Kind  AFKKind `json:"kind"`
}

type Components struct {
	TeamDeathBurden    float64 `json:"team_death_burden"`
	DeathOutliers      float64 `json:"death_outliers"`
	RelativeBonus      float64 `json:"relative_bonus"`
	ObjectiveDisparity float64 `json:"objective_disparity"`
	LowDamage          float64 `json:"low_damage"`
	AFK                float64 `json:"afk"`
	Vision             float64 `json:"vision"`
	Boosted            float64 `json:"boosted"`
	TeamCollapse       float64 `json:"team_collapse"`
	CleanEarly         float64 `json:"clean_early"`
	HardCarry          float64 `json:"hard_carry"`
}

// TeamImpact is what the team did to the game.
func (c Components) TeamImpact() float64 {
	return c.TeamDeathBurden + c.DeathOutliers + c.TeamCollapse + c.AFK + math.Max(0, c.Vision)
}

// PlayerPositive is evidence the player held up their end.
func (c Components) PlayerPositive() float64 {
	return c.RelativeBonus + c.ObjectiveDisparity + c.CleanEarly + math.Abs(c.HardCarry)
}

// PlayerNegative is evidence the player was part of the problem.
func (c Components) PlayerNegative() float64 {
	return c.LowDamage + math.Abs(math.Min(0, c.Vision)) + math.Abs(c.Boosted)
}

type Result struct {
	MatchID     string  `json:"match_id"`
	QueueID     int     `json:"queue_id"`
	Win         bool    `json:"win"`
	Score       float64 `json:"score"`
	Outcome     Outcome `json:"outcome"`
	Champion    string  `json:"champion,omitempty"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	DurationMin float64 `json:"duration_min"`
	StartTimeMs int64   `json:"start_time_ms,omitempty"`

	TeamDPM           float64 `json:"team_dpm"`
	TeamAvgDPM        float64 `json:"team_avg_dpm"`
	PlayerDPM         float64 `json:"player_dpm"`
	PlayerObjectives  int     `json:"player_objectives"`
	TeamObjectivesAvg float64 `json:"team_objectives_avg"`

	TeamImpact     float64    `json:"team_impact"`
	PlayerPositive float64    `json:"player_positive"`
	PlayerNegative float64    `json:"player_negative"`
	AFKEvents      []AFKEvent `json:"afk_events"`
	Components     Components `json:"components"`
}

type Report struct {
	GriefIndex     float64  `json:"grief_index"`
	LossGriefIndex float64  `json:"loss_grief_index"`
	RawTotal       float64  `json:"raw_total"`
	GamesAnalyzed  int      `json:"games_analyzed"`
	Losses         int      `json:"losses"`
	Games          []Result `json:"games"`
}

type Evaluator struct {
	params Params
}

func NewEvaluator(params Params) *Evaluator {
	return &Evaluator{params: params}
}

func (e *Evaluator) Params() Params { return e.params }

// EvaluateMany scores the first limit ranked solo matches in the order given.
// A limit of zero or less scores all of them.
func (e *Evaluator) EvaluateMany(matches []domain.Match, puuid string, limit int) (Report, error) {
	report := Report{Games: []Result{}}
	var lossTotal float64
	for i := range matches {
		if limit > 0 && len(report.Games) >= limit {
			break
		}
		if matches[i].QueueID != domain.QueueRankedSolo {
			continue
		}
		res, err := e.Evaluate(&matches[i], puuid)
		if err != nil {
			return Report{}, err
		}
		report.Games = append(report.Games, res)
		report.RawTotal += res.Score
		if !res.Win {
			report.Losses++
			lossTotal += res.Score
		}
	}

	report.GamesAnalyzed = len(report.Games)
	if report.GamesAnalyzed > 0 {
		report.GriefIndex = round(report.RawTotal/float64(report.GamesAnalyzed), 1)
	}
	if report.Losses > 0 {
		report.LossGriefIndex = round(lossTotal/float64(report.Losses), 1)
	}
	report.RawTotal = round(report.RawTotal, 1)
	return report, nil
}

// Evaluate scores one match from the perspective of puuid. The match is only
// read.
func (e *Evaluator) Evaluate(m *domain.Match, puuid string) (Result, error) {
	player, ok := m.Participant(puuid)
	if !ok {
		return Result{}, errors.Wrapf(ErrPlayerNotInMatch, "match %s", m.ID)
	}

	p := e.params
	g := newGame(m, player)
	base := rank.For(rank.ParseTier(player.Tier).OrDefault())

	var c Components
	var afkRaw float64
	var events []AFKEvent
	for _, tm := range g.teammates {
		kind, ok := afkKind(tm, g.durationSec, p)
		if !ok {
			continue
		}
		afkRaw += afkPenalty(kind, p)
		events = append(events, AFKEvent{PUUID: tm.PUUID, Name: tm.RiotIDName, Kind: kind})
	}

	c.LowDamage = lowDamage(g, p)

	blended := (base.TeamDeathsPerMin + g.teamAvgDPM) / 2
	c.TeamDeathBurden = math.Max(0, g.teamDPM-blended) * p.TeamDeathBurdenWeight

	for _, tm := range g.teammates {
		dpm := float64(tm.Deaths) / g.minutes
		if dpm > g.teamAvgDPM*base.OutlierMultiplier {
			c.DeathOutliers += math.Max(0, (dpm-g.teamAvgDPM)*p.DeathOutlierWeight)
		}
	}

	c.RelativeBonus = math.Max(0, (g.teamAvgDPM-g.playerDPM)*p.RelativeBonusWeight)

	expectedDeaths := base.TeamDeathsPerMin * g.minutes
	if float64(g.teamDeaths) >= expectedDeaths*p.CollapseExcess {
		if player.Deaths <= p.CleanEarlyMaxDeaths ||
			float64(g.teamDeaths) >= float64(player.Deaths)*p.TeamVsPlayerDeathRatio {
			c.TeamCollapse = p.CollapseWeight
		}
	}
	if player.Deaths <= p.CleanEarlyMaxDeaths && c.TeamCollapse > 0 {
		c.CleanEarly = p.CleanEarlyBonus
	}

	if g.teamObjAvg > 0 {
		od := (float64(g.playerObj)/g.teamObjAvg - 1) * p.ObjectiveDisparityWeight
		c.ObjectiveDisparity = clamp(od, 0, p.ObjectiveDisparityCap)
	}

	c.Vision = vision(g, base, c.RelativeBonus, p)

	amplifier := p.WinAmplifier
	if !player.Win {
		amplifier = p.LossAmplifier
	}
	durationFactor := clamp(g.minutes/p.ExpectedGameMinutes, p.MinDurationFactor, p.MaxDurationFactor)

	rest := c.TeamDeathBurden + c.DeathOutliers + c.TeamCollapse + c.CleanEarly +
		c.RelativeBonus + c.ObjectiveDisparity + c.LowDamage + c.Vision
	// The cap is a share of the uncapped score after amplification.
	uncapped := (rest + afkRaw) * amplifier * durationFactor
	c.AFK = math.Max(0, math.Min(afkRaw, p.AFKCapShare*uncapped))
	positive := (rest + c.AFK) * amplifier * durationFactor

	if player.Win && g.playerDPM > g.teamAvgDPM && float64(g.playerObj) < g.teamObjAvg {
		c.Boosted = -(g.playerDPM - g.teamAvgDPM) * p.BoostedWeight
	}
	if player.Win && g.teamDeaths >= p.HardCarryTeamDeaths &&
		float64(player.Deaths) <= g.teamAvgDeaths*p.HardCarryDeathShare {
		c.HardCarry = p.HardCarryBonus
	}

	score := math.Max(positive+c.Boosted+c.HardCarry, p.MinGameScore)

	c = c.rounded()
	res := Result{
		MatchID:           m.ID,
		QueueID:           m.QueueID,
		Win:               player.Win,
		Score:             round(score, 2),
		Champion:          player.ChampionName,
		Kills:             player.Kills,
		Deaths:            player.Deaths,
		Assists:           player.Assists,
		DurationMin:       round(g.minutes, 1),
		StartTimeMs:       m.GameStartMs,
		TeamDPM:           round(g.teamDPM, 2),
		TeamAvgDPM:        round(g.teamAvgDPM, 2),
		PlayerDPM:         round(g.playerDPM, 2),
		PlayerObjectives:  g.playerObj,
		TeamObjectivesAvg: round(g.teamObjAvg, 2),
		TeamImpact:        round(c.TeamImpact(), 2),
		PlayerPositive:    round(c.PlayerPositive(), 2),
		PlayerNegative:    round(c.PlayerNegative(), 2),
		AFKEvents:         events,
		Components:        c,
	}
	res.Outcome = classify(res.Win, res.TeamImpact, res.PlayerPositive, res.PlayerNegative, p.HighTeamImpact)
	return res, nil
}

func classify(win bool, teamImpact, positive, negative, highImpact float64) Outcome {
	high := teamImpact >= highImpact
	blameless := positive >= negative
	switch {
	case win && !high && blameless:
		return OutcomeCakeWalk
	case win && !high:
		return OutcomePassenger
	case win && blameless:
		return OutcomeHardCarry
	case win:
		return OutcomeLuckyWin
	case !high && blameless:
		return OutcomeFairLoss
	case !high:
		return OutcomeInter
	case blameless:
		return OutcomeGriefed
	default:
		return OutcomeMutualGrief
	}
}

// game caches the per-team figures every sub-metric reads.
type game struct {
	durationSec int
	minutes     float64

	player    *domain.Participant
	team      []*domain.Participant
	teammates []*domain.Participant

	teamDeaths    int
	teamAvgDeaths float64
	teamDPM       float64
	teamAvgDPM    float64
	playerDPM     float64
	playerObj     int
	teamObjAvg    float64
}

func newGame(m *domain.Match, player *domain.Participant) *game {
	g := &game{durationSec: m.DurationSec, player: player}
	g.minutes = math.Max(1, float64(m.DurationSec)/60)

	for i := range m.Participants {
		p := &m.Participants[i]
		if p.TeamID != player.TeamID {
			continue
		}
		g.team = append(g.team, p)
		if p != player {
			g.teammates = append(g.teammates, p)
		}
	}

	var objTotal int
	for _, p := range g.team {
		g.teamDeaths += p.Deaths
		objTotal += p.Objectives()
	}
	n := float64(len(g.team))
	g.teamAvgDeaths = float64(g.teamDeaths) / n
	g.teamDPM = float64(g.teamDeaths) / g.minutes
	g.teamAvgDPM = g.teamAvgDeaths / g.minutes
	g.playerDPM = float64(player.Deaths) / g.minutes
	g.playerObj = player.Objectives()
	g.teamObjAvg = float64(objTotal) / n
	return g
}

// minutesPlayed floors at one minute so early leavers cannot blow up rates.
func (g *game) minutesPlayed(p *domain.Participant) float64 {
	return math.Max(1, float64(p.PlayedSec(g.durationSec))/60)
}

func (g *game) playedFullGame(p *domain.Participant, share float64) bool {
	return float64(p.PlayedSec(g.durationSec)) >= float64(g.durationSec)*share
}

func afkKind(p *domain.Participant, durationSec int, params Params) (AFKKind, bool) {
	played := float64(p.PlayedSec(durationSec))
	switch {
	case p.LeaverPenalty:
		return AFKPenalty, true
	case p.AFK:
		return AFKFlag, true
	case played < float64(durationSec)*params.AFKEarlyShare:
		return AFKEarly, true
	case played < float64(durationSec)*params.AFKMidShare:
		return AFKMid, true
	}
	return "", false
}

func afkPenalty(kind AFKKind, p Params) float64 {
	switch kind {
	case AFKEarly:
		return p.AFKEarlyPenalty
	case AFKMid:
		return p.AFKMidPenalty
	default:
		return p.AFKLatePenalty
	}
}

func lowDamage(g *game, p Params) float64 {
	player := g.player
	if player.Position == domain.PositionSupport {
		return 0
	}
	if !g.playedFullGame(player, p.FullGameShare) {
		return 0
	}
	if float64(player.TotalHeal)/g.minutes >= p.TankHealPerMin &&
		float64(player.Armor)/g.minutes >= p.TankArmorPerMin {
		return 0
	}

	var sum float64
	var n int
	for _, tm := range g.team {
		if !g.playedFullGame(tm, p.FullGameShare) {
			continue
		}
		sum += float64(tm.DamageToChampions) / g.minutesPlayed(tm)
		n++
	}
	if n == 0 || sum <= 0 {
		return 0
	}

	ratio := (float64(player.DamageToChampions) / g.minutesPlayed(player)) / (sum / float64(n))
	return damagePenalty(ratio, p.DamageBands)
}

func damagePenalty(ratio float64, bands []DamageBand) float64 {
	if len(bands) == 0 {
		return 0
	}
	for _, b := range bands {
		if ratio >= b.MinRatio {
			return b.Penalty
		}
	}
	return bands[len(bands)-1].Penalty
}

func vision(g *game, base rank.Baseline, relativeBonus float64, p Params) float64 {
	player := g.player
	playerVPM := float64(player.VisionScore) / g.minutesPlayed(player)

	if player.Position == domain.PositionSupport {
		if playerVPM < base.SupportVisionPerMin {
			return p.SupportVisionPenalty
		}
		return 0
	}
	if player.Win {
		return 0
	}

	activation := clamp(relativeBonus/p.VisionActivationScale, 0, 1)
	if activation <= 0 || base.VisionPerMin <= 0 {
		return 0
	}

	var sum float64
	for _, tm := range g.team {
		sum += float64(tm.VisionScore) / g.minutesPlayed(tm)
	}
	teamVPM := sum / float64(len(g.team))

	delta := (teamVPM - base.VisionPerMin) / base.VisionPerMin
	if delta >= -p.VisionShortfall {
		return 0
	}
	return math.Min(p.VisionWeight, math.Abs(delta)*p.VisionWeight*activation)
}

func (c Components) rounded() Components {
	return Components{
		TeamDeathBurden:    round(c.TeamDeathBurden, 2),
		DeathOutliers:      round(c.DeathOutliers, 2),
		RelativeBonus:      round(c.RelativeBonus, 2),
		ObjectiveDisparity: round(c.ObjectiveDisparity, 2),
		LowDamage:          round(c.LowDamage, 2),
		AFK:                round(c.AFK, 2),
		Vision:             round(c.Vision, 2),
		Boosted:            round(c.Boosted, 2),
		TeamCollapse:       round(c.TeamCollapse, 2),
		CleanEarly:         round(c.CleanEarly, 2),
		HardCarry:          round(c.HardCarry, 2),
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}
