package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-tracker/internal/domain"
	"league-tracker/internal/window"
)

var base = time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

func soloGame(id string, queue int, start time.Time, puuid string, win bool, k, d, a int) domain.Match {
	return domain.Match{
		ID:          id,
		QueueID:     queue,
		GameStartMs: start.UnixMilli(),
		DurationSec: 1800,
		Participants: []domain.Participant{
			{PUUID: puuid, TeamID: domain.TeamBlue, Win: win, Kills: k, Deaths: d, Assists: a, ChampionName: "Ahri"},
			{PUUID: "enemy", TeamID: domain.TeamRed, Win: !win},
		},
	}
}

// teamGame puts blue and red members on their teams and pads each to five with strangers.
func teamGame(id string, queue int, start time.Time, blue []string, blueWin bool, red []string) domain.Match {
	m := domain.Match{ID: id, QueueID: queue, GameStartMs: start.UnixMilli(), DurationSec: 1800}
	add := func(members []string, team int, win bool) {
		for i := 0; i < 5; i++ {
			puuid := fmt.Sprintf("%s-stranger-%d-%d", id, team, i)
			if i < len(members) {
				puuid = members[i]
			}
			m.Participants = append(m.Participants, domain.Participant{PUUID: puuid, TeamID: team, Win: win})
		}
	}
	add(blue, domain.TeamBlue, blueWin)
	add(red, domain.TeamRed, !blueWin)
	return m
}

func TestAggregate(t *testing.T) {
	matches := []domain.Match{
		soloGame("m1", domain.QueueRankedSolo, base, "me", true, 5, 2, 7),
		soloGame("m2", domain.QueueRankedSolo, base.Add(time.Hour), "me", false, 1, 4, 3),
		soloGame("m3", domain.QueueRankedFlex, base, "me", true, 10, 0, 0),
		soloGame("m4", domain.QueueRankedSolo, base, "someone-else", true, 9, 9, 9),
	}

	s := Aggregate(matches, "me", Queue(domain.QueueRankedSolo), nil)
	assert.Equal(t, 2, s.Games)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, float64(5+1+7+3)/6, s.KDA, 1e-9)
	assert.InDelta(t, 50.0, s.WinRate(), 1e-9)

	all := Aggregate(matches, "me", AnyQueue, nil)
	assert.Equal(t, 3, all.Games)
}

func TestAggregateKDAFloor(t *testing.T) {
	matches := []domain.Match{
		soloGame("m1", domain.QueueRankedSolo, base, "me", true, 4, 0, 6),
		soloGame("m2", domain.QueueRankedSolo, base, "me", true, 3, 0, 1),
	}
	s := Aggregate(matches, "me", AnyQueue, nil)
	require.Equal(t, 0, s.Deaths)
	assert.Equal(t, float64(4+6+3+1), s.KDA)
}

func TestAggregateZeroGames(t *testing.T) {
	assert.Equal(t, Summary{}, Aggregate(nil, "me", AnyQueue, nil))

	w := window.Window{Start: base.Add(24 * time.Hour), End: base.Add(48 * time.Hour)}
	s := Aggregate([]domain.Match{soloGame("m1", domain.QueueRankedSolo, base, "me", true, 1, 1, 1)}, "me", AnyQueue, &w)
	assert.Equal(t, Summary{}, s)
	assert.Equal(t, 0.0, s.KDA)
}

func TestAggregateWindowIsHalfOpen(t *testing.T) {
	w := window.Window{Start: base, End: base.Add(24 * time.Hour)}
	matches := []domain.Match{
		soloGame("at-start", domain.QueueRankedSolo, w.Start, "me", true, 1, 1, 1),
		soloGame("at-end", domain.QueueRankedSolo, w.End, "me", true, 1, 1, 1),
	}
	s := Aggregate(matches, "me", AnyQueue, &w)
	assert.Equal(t, 1, s.Games)
}

func TestAggregateMissingStartTime(t *testing.T) {
	m := soloGame("no-time", domain.QueueRankedSolo, base, "me", true, 1, 1, 1)
	m.GameStartMs = 0

	w := window.Window{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}
	assert.Equal(t, 0, Aggregate([]domain.Match{m}, "me", AnyQueue, &w).Games)
	assert.Equal(t, 1, Aggregate([]domain.Match{m}, "me", AnyQueue, nil).Games)

	m.GameCreationMs = base.UnixMilli()
	assert.Equal(t, 1, Aggregate([]domain.Match{m}, "me", AnyQueue, &w).Games)
}

func TestAggregateARAMBucket(t *testing.T) {
	matches := []domain.Match{
		soloGame("a1", domain.QueueARAM, base, "me", true, 10, 5, 20),
		soloGame("a2", domain.QueueARAMEvent, base, "me", false, 2, 8, 6),
		soloGame("s1", domain.QueueRankedSolo, base, "me", true, 1, 1, 1),
	}

	s := Aggregate(matches, "me", ARAM, nil)
	assert.Equal(t, 2, s.Games)

	// Per-queue KDAs are 6.0 and 1.0; the combined value is their games-weighted mean.
	combined := AggregateEach(matches, "me", ARAM, nil)
	assert.Equal(t, 2, combined.Games)
	assert.Equal(t, 1, combined.Wins)
	assert.InDelta(t, 3.5, combined.KDA, 1e-9)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, Summary{}, Combine())
	c := Combine(
		Summary{Games: 3, Wins: 2, Losses: 1, KDA: 2},
		Summary{Games: 1, Wins: 0, Losses: 1, KDA: 6},
		Summary{},
	)
	assert.Equal(t, 4, c.Games)
	assert.Equal(t, 2, c.Wins)
	assert.Equal(t, 2, c.Losses)
	assert.InDelta(t, 3.0, c.KDA, 1e-9)
}

func TestQueueFilter(t *testing.T) {
	assert.True(t, AnyQueue.Matches(1234))
	assert.True(t, Queue(420).Matches(420))
	assert.False(t, Queue(420).Matches(440))
	assert.True(t, ARAM.Matches(2400))
	assert.Nil(t, AnyQueue.IDs())
}

func testPool() Pool {
	return Pool{"a": "A#NA1", "b": "B#NA1", "c": "C#NA1", "d": "D#NA1", "e": "E#NA1", "f": "F#NA1"}
}

func repeat(n int, id string, blue []string, wins int) []domain.Match {
	var out []domain.Match
	for i := 0; i < n; i++ {
		out = append(out, teamGame(fmt.Sprintf("%s-%d", id, i), domain.QueueRankedSolo, base, blue, i < wins, nil))
	}
	return out
}

func TestDuosBackfillsLowSamplePairs(t *testing.T) {
	var matches []domain.Match
	matches = append(matches, repeat(5, "ab", []string{"a", "b"}, 4)...)
	matches = append(matches, repeat(6, "cd", []string{"c", "d"}, 3)...)
	matches = append(matches, repeat(1, "ac", []string{"a", "c"}, 1)...)
	matches = append(matches, repeat(2, "bd", []string{"b", "d"}, 1)...)
	matches = append(matches, repeat(4, "ef", []string{"e", "f"}, 0)...)

	opts := DefaultDuoOptions()
	opts.Top = 5
	got := Duos(matches, testPool(), opts)

	require.Len(t, got, 5)
	keys := make([]string, len(got))
	for i, r := range got {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"A#NA1,B#NA1", "C#NA1,D#NA1", "A#NA1,C#NA1", "B#NA1,D#NA1", "E#NA1,F#NA1"}, keys)
	assert.InDelta(t, 80.0, got[0].WinRate, 1e-9)
	assert.Equal(t, 1, got[0].Losses)
	assert.Equal(t, []string{"A#NA1", "B#NA1"}, got[0].Members)
}

func TestDuosMinGamesAndTop(t *testing.T) {
	var matches []domain.Match
	matches = append(matches, repeat(5, "ab", []string{"a", "b"}, 5)...)
	matches = append(matches, repeat(1, "cd", []string{"c", "d"}, 1)...)

	opts := DefaultDuoOptions()
	opts.MinGames = 2
	got := Duos(matches, testPool(), opts)
	require.Len(t, got, 1)
	assert.Equal(t, "A#NA1,B#NA1", got[0].Key)

	opts = DefaultDuoOptions()
	opts.Top = 1
	assert.Len(t, Duos(matches, testPool(), opts), 1)
}

func TestStackRequiresExactlyFive(t *testing.T) {
	four := []domain.Match{teamGame("four", domain.QueueRankedFlex, base, []string{"a", "b", "c", "d"}, true, nil)}

	stacks, unique := Stacks(four, testPool(), DefaultStackOptions(time.Time{}))
	assert.Empty(t, stacks)
	assert.Equal(t, 0, unique)

	duoOpts := DefaultDuoOptions()
	duoOpts.Queue = domain.QueueRankedFlex
	assert.Len(t, Duos(four, testPool(), duoOpts), 6)
}

func TestStacks(t *testing.T) {
	five := []string{"e", "d", "c", "b", "a"}
	other := []string{"a", "b", "c", "d", "f"}
	matches := []domain.Match{
		teamGame("s1", domain.QueueRankedFlex, base, five, true, nil),
		teamGame("s2", domain.QueueRankedFlex, base, five, false, nil),
		teamGame("s3", domain.QueueRankedFlex, base, five, true, nil),
		teamGame("s4", domain.QueueRankedFlex, base, other, true, nil),
		teamGame("old", domain.QueueRankedFlex, base.Add(-30*24*time.Hour), other, true, nil),
		teamGame("solo", domain.QueueRankedSolo, base, other, true, nil),
	}

	got, unique := Stacks(matches, testPool(), DefaultStackOptions(base.Add(-24*time.Hour)))
	assert.Equal(t, 2, unique)
	require.Len(t, got, 2)

	assert.Equal(t, "A#NA1,B#NA1,C#NA1,D#NA1,E#NA1", got[0].Key)
	assert.Equal(t, 3, got[0].Games)
	assert.Equal(t, 2, got[0].Wins)
	assert.Equal(t, "A#NA1,B#NA1,C#NA1,D#NA1,F#NA1", got[1].Key)
	assert.Equal(t, 1, got[1].Games)
}

func TestSynergyIsDeterministic(t *testing.T) {
	var matches []domain.Match
	matches = append(matches, repeat(3, "ab", []string{"a", "b"}, 2)...)
	matches = append(matches, repeat(3, "cd", []string{"c", "d"}, 2)...)
	matches = append(matches, repeat(3, "ef", []string{"e", "f"}, 2)...)

	first := Duos(matches, testPool(), DefaultDuoOptions())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Duos(matches, testPool(), DefaultDuoOptions()))
	}
	assert.Equal(t, "A#NA1,B#NA1", first[0].Key)
}

func TestTopChampionsAndRecent(t *testing.T) {
	matches := []domain.Match{
		soloGame("m1", domain.QueueRankedSolo, base, "me", true, 1, 1, 1),
		soloGame("m2", domain.QueueRankedSolo, base, "me", false, 1, 1, 1),
		soloGame("m3", domain.QueueRankedFlex, base, "me", true, 1, 1, 1),
	}
	matches[1].Participants[0].ChampionName = "Lux"

	champs := TopChampions(matches, "me", Queue(domain.QueueRankedSolo), 20, 5)
	require.Len(t, champs, 2)
	assert.Equal(t, "Ahri", champs[0].Champion)
	assert.InDelta(t, 100.0, champs[0].WinRate, 1e-9)

	r := Recent(matches, "me", 2)
	assert.Equal(t, 2, r.Games)

	assert.Equal(t, map[int]int{domain.QueueRankedSolo: 2, domain.QueueRankedFlex: 1}, QueueCounts(matches))
}
