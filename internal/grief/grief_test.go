package grief

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-tracker/internal/domain"
)

const me = "me"

func participant(puuid string, team int, win bool, deaths int) domain.Participant {
	return domain.Participant{
		PUUID:             puuid,
		RiotIDName:        puuid,
		ChampionName:      "Garen",
		TeamID:            team,
		Win:               win,
		Kills:             3,
		Deaths:            deaths,
		Assists:           5,
		DamageToChampions: 20000,
		VisionScore:       30,
		TimePlayedSec:     1800,
		Position:          "MIDDLE",
		DragonTakedowns:   1,
		TurretTakedowns:   1,
	}
}

// scenario builds a 30 minute ranked solo game. The evaluated player is the
// first blue participant; mutate fns adjust it afterwards.
func scenario(id string, win bool, myDeaths, mateDeaths int, mutate ...func(m *domain.Match)) domain.Match {
	m := domain.Match{ID: id, QueueID: domain.QueueRankedSolo, GameStartMs: 1_700_000_000_000, DurationSec: 1800}
	m.Participants = append(m.Participants, participant(me, domain.TeamBlue, win, myDeaths))
	for i := 1; i < 5; i++ {
		m.Participants = append(m.Participants, participant(fmt.Sprintf("mate%d", i), domain.TeamBlue, win, mateDeaths))
	}
	for i := 0; i < 5; i++ {
		m.Participants = append(m.Participants, participant(fmt.Sprintf("enemy%d", i), domain.TeamRed, !win, 3))
	}
	for _, fn := range mutate {
		fn(&m)
	}
	return m
}

func lowDamageDealer(m *domain.Match) { m.Participants[0].DamageToChampions = 2000 }

func earlyLeaver(m *domain.Match) { m.Participants[1].TimePlayedSec = 1000 }

func evaluate(t *testing.T, m domain.Match) Result {
	t.Helper()
	res, err := NewEvaluator(DefaultParams()).Evaluate(&m, me)
	require.NoError(t, err)
	return res
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		win              bool
		impact, pos, neg float64
		want             Outcome
	}{
		{true, 10, 5, 0, OutcomeCakeWalk},
		{true, 10, 0, 5, OutcomePassenger},
		{true, 60, 5, 5, OutcomeHardCarry},
		{true, 50, 0, 5, OutcomeLuckyWin},
		{false, 49.9, 5, 5, OutcomeFairLoss},
		{false, 0, 0, 70, OutcomeInter},
		{false, 100, 40, 0, OutcomeGriefed},
		{false, 100, 40, 70, OutcomeMutualGrief},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.win, tt.impact, tt.pos, tt.neg, 50))
		})
	}
}

func TestEvaluateOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		match domain.Match
		want  Outcome
		score float64
	}{
		{"clean win", scenario("cake", true, 1, 2), OutcomeCakeWalk, 0.6},
		{"win with low damage", scenario("passenger", true, 1, 2, lowDamageDealer), OutcomePassenger, 53.1},
		{"win through a collapsing team", scenario("carry", true, 1, 12), OutcomeHardCarry, 83.7},
		{"win with a leaver and low damage", scenario("lucky", true, 2, 2, lowDamageDealer, earlyLeaver), OutcomeLuckyWin, 130.125},
		{"even loss", scenario("fair", false, 4, 4), OutcomeFairLoss, 3.75},
		{"loss with low damage", scenario("inter", false, 4, 4, lowDamageDealer), OutcomeInter, 91.25},
		{"loss with a feeding team", scenario("griefed", false, 1, 12), OutcomeGriefed, 189.5},
		{"feeding team and low damage", scenario("mutual", false, 1, 12, lowDamageDealer), OutcomeMutualGrief, 277},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, tt.match)
			assert.Equal(t, tt.want, res.Outcome)
			assert.InDelta(t, tt.score, res.Score, 0.01)
		})
	}
}

func TestEvaluateGriefedComponents(t *testing.T) {
	res := evaluate(t, scenario("griefed", false, 1, 12))

	c := res.Components
	assert.InDelta(t, 37.8, c.TeamDeathBurden, 0.01)
	assert.Equal(t, 70.0, c.TeamCollapse)
	assert.Equal(t, 35.0, c.CleanEarly)
	assert.InDelta(t, 8.8, c.RelativeBonus, 0.01)
	assert.Zero(t, c.DeathOutliers)
	assert.Zero(t, c.LowDamage)
	assert.Zero(t, c.HardCarry)
	assert.InDelta(t, 107.8, res.TeamImpact, 0.01)
	assert.InDelta(t, 43.8, res.PlayerPositive, 0.01)
	assert.InDelta(t, 49.0/30, res.TeamDPM, 0.01)
}

func TestEvaluateHardCarryAndBoosted(t *testing.T) {
	res := evaluate(t, scenario("carry", true, 1, 12))
	assert.Equal(t, -30.0, res.Components.HardCarry)
	assert.Zero(t, res.Components.Boosted)

	// More deaths than the team average and fewer objectives on a win.
	boosted := evaluate(t, scenario("boosted", true, 6, 2, func(m *domain.Match) {
		m.Participants[0].DragonTakedowns = 0
		m.Participants[0].TurretTakedowns = 0
	}))
	// team avg dpm = 14/5/30, player dpm = 6/30
	assert.InDelta(t, -(6.0/30-14.0/150)*45, boosted.Components.Boosted, 0.01)
	assert.Zero(t, boosted.Components.HardCarry)
}

func TestEvaluateAFKCap(t *testing.T) {
	res := evaluate(t, scenario("lucky", true, 2, 2, lowDamageDealer, earlyLeaver))

	require.Len(t, res.AFKEvents, 1)
	assert.Equal(t, AFKEarly, res.AFKEvents[0].Kind)
	assert.Equal(t, "mate1", res.AFKEvents[0].PUUID)
	assert.Equal(t, 70.0, res.Components.LowDamage)
	// raw 160 capped to 60% of (70+160) x 0.75 win amplifier
	assert.InDelta(t, 103.5, res.Components.AFK, 0.01)

	// A lone early leaver on a loss: 60% of 160 x 1.25 loss amplifier.
	alone := evaluate(t, scenario("alone", false, 2, 2, earlyLeaver))
	assert.InDelta(t, 120, alone.Components.AFK, 0.01)
	assert.InDelta(t, 150, alone.Score, 0.01)
}

func TestAFKKinds(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name    string
		mutate  func(*domain.Participant)
		want    AFKKind
		flagged bool
		penalty float64
	}{
		{"full game", func(*domain.Participant) {}, "", false, 0},
		{"unreported time counts as full", func(x *domain.Participant) { x.TimePlayedSec = 0 }, "", false, 0},
		{"leaver penalty", func(x *domain.Participant) { x.LeaverPenalty = true }, AFKPenalty, true, 90},
		{"afk flag", func(x *domain.Participant) { x.AFK = true }, AFKFlag, true, 90},
		{"early", func(x *domain.Participant) { x.TimePlayedSec = 1100 }, AFKEarly, true, 160},
		{"mid", func(x *domain.Participant) { x.TimePlayedSec = 1500 }, AFKMid, true, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := participant("x", domain.TeamBlue, true, 1)
			tt.mutate(&x)
			kind, ok := afkKind(&x, 1800, p)
			assert.Equal(t, tt.flagged, ok)
			assert.Equal(t, tt.want, kind)
			if ok {
				assert.Equal(t, tt.penalty, afkPenalty(kind, p))
			}
		})
	}
}

func TestDamagePenaltyBands(t *testing.T) {
	bands := DefaultParams().DamageBands
	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.2, 0},
		{0.8, 0},
		{0.79, 5},
		{0.6, 5},
		{0.5, 15},
		{0.2, 35},
		{0.19, 70},
		{0, 70},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, damagePenalty(tt.ratio, bands), "ratio %v", tt.ratio)
	}
}

func TestLowDamageExemptions(t *testing.T) {
	support := evaluate(t, scenario("support", false, 4, 4, lowDamageDealer, func(m *domain.Match) {
		m.Participants[0].Position = domain.PositionSupport
	}))
	assert.Zero(t, support.Components.LowDamage)

	tank := evaluate(t, scenario("tank", false, 4, 4, lowDamageDealer, func(m *domain.Match) {
		m.Participants[0].TotalHeal = 3000
		m.Participants[0].Armor = 100
	}))
	assert.Zero(t, tank.Components.LowDamage)

	left := evaluate(t, scenario("left", false, 4, 4, lowDamageDealer, func(m *domain.Match) {
		m.Participants[0].TimePlayedSec = 1200
	}))
	assert.Zero(t, left.Components.LowDamage)
}

func TestVision(t *testing.T) {
	lowSupport := evaluate(t, scenario("ward", true, 1, 2, func(m *domain.Match) {
		m.Participants[0].Position = domain.PositionSupport
		m.Participants[0].VisionScore = 10
	}))
	assert.Equal(t, -10.0, lowSupport.Components.Vision)
	assert.Equal(t, OutcomePassenger, lowSupport.Outcome)

	blind := evaluate(t, scenario("blind", false, 1, 12, func(m *domain.Match) {
		for i := range m.Participants {
			m.Participants[i].VisionScore = 3
		}
	}))
	// shortfall (0.1-0.55)/0.55 times weight 8 times activation 8.8/25
	assert.InDelta(t, 2.3, blind.Components.Vision, 0.01)

	won := evaluate(t, scenario("won", true, 1, 12, func(m *domain.Match) {
		for i := range m.Participants {
			m.Participants[i].VisionScore = 3
		}
	}))
	assert.Zero(t, won.Components.Vision)
}

func TestEvaluateMinimumScore(t *testing.T) {
	p := DefaultParams()
	p.HardCarryBonus = -500
	m := scenario("carry", true, 1, 12)
	res, err := NewEvaluator(p).Evaluate(&m, me)
	require.NoError(t, err)
	assert.Equal(t, -50.0, res.Score)
}

func TestEvaluatePlayerMissing(t *testing.T) {
	m := scenario("x", true, 1, 2)
	_, err := NewEvaluator(DefaultParams()).Evaluate(&m, "stranger")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlayerNotInMatch))

	_, err = NewEvaluator(DefaultParams()).EvaluateMany([]domain.Match{m}, "stranger", 10)
	assert.True(t, errors.Is(err, ErrPlayerNotInMatch))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	m := scenario("mutual", false, 1, 12, lowDamageDealer, earlyLeaver)
	before := scenario("mutual", false, 1, 12, lowDamageDealer, earlyLeaver)

	e := NewEvaluator(DefaultParams())
	first, err := e.Evaluate(&m, me)
	require.NoError(t, err)
	second, err := e.Evaluate(&m, me)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, m)
}

func TestEvaluateMany(t *testing.T) {
	flex := scenario("flex", false, 1, 12)
	flex.QueueID = domain.QueueRankedFlex
	matches := []domain.Match{
		scenario("griefed", false, 1, 12),
		flex,
		scenario("cake", true, 1, 2),
		scenario("inter", false, 4, 4, lowDamageDealer),
	}
	e := NewEvaluator(DefaultParams())

	report, err := e.EvaluateMany(matches, me, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.GamesAnalyzed)
	assert.Equal(t, 2, report.Losses)
	assert.InDelta(t, 281.35, report.RawTotal, 0.1)
	assert.InDelta(t, 93.8, report.GriefIndex, 0.001)
	assert.InDelta(t, 140.4, report.LossGriefIndex, 0.001)

	limited, err := e.EvaluateMany(matches, me, 2)
	require.NoError(t, err)
	require.Len(t, limited.Games, 2)
	assert.Equal(t, "griefed", limited.Games[0].MatchID)
	assert.Equal(t, "cake", limited.Games[1].MatchID)

	empty, err := e.EvaluateMany(nil, me, 10)
	require.NoError(t, err)
	assert.Zero(t, empty.GriefIndex)
	assert.Zero(t, empty.LossGriefIndex)
	assert.Empty(t, empty.Games)
}

func TestLoadParams(t *testing.T) {
	p, err := LoadParams("")
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)

	dir := t.TempDir()
	path := filepath.Join(dir, "grief.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"high_team_impact": 80, "loss_amplifier": 2}`), 0o600))

	p, err = LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.HighTeamImpact)
	assert.Equal(t, 2.0, p.LossAmplifier)
	assert.Equal(t, 0.75, p.WinAmplifier)
	assert.Len(t, p.DamageBands, 5)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"expected_game_minutes": 0}`), 0o600))
	_, err = LoadParams(bad)
	assert.Error(t, err)

	_, err = LoadParams(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
