package stats

import (
	"sort"
	"strings"
	"time"

	"league-tracker/internal/domain"
)

// StackSize is the number of pool members a team needs to count as a full stack.
const StackSize = 5

// Pool maps a member's PUUID to the identifier shown in results.
type Pool map[string]string

type Record struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
	Games   int      `json:"games"`
	Wins    int      `json:"wins"`
	Losses  int      `json:"losses"`
	WinRate float64  `json:"win_rate"`
}

type RankOptions struct {
	Queue int
	// Since excludes matches that started earlier, or have no start time. Zero disables it.
	Since time.Time
	Top   int
	// MinGames drops records with fewer games.
	MinGames int
	// PreferredGames ranks records with at least this many games ahead of the
	// rest; smaller samples only backfill the list up to Top.
	PreferredGames int
}

func DefaultDuoOptions() RankOptions {
	return RankOptions{Queue: domain.QueueRankedSolo, Top: 10, MinGames: 1, PreferredGames: 5}
}

func DefaultStackOptions(since time.Time) RankOptions {
	return RankOptions{Queue: domain.QueueRankedFlex, Since: since, Top: 5, MinGames: 1, PreferredGames: 3}
}

type counter struct {
	members []string
	games   int
	wins    int
}

// Duos counts every unordered pair of pool members that played on the same team.
func Duos(matches []domain.Match, pool Pool, opts RankOptions) []Record {
	counts := make(map[string]*counter)
	forEachTeam(matches, pool, opts, func(members []string, win bool) {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				tally(counts, []string{members[i], members[j]}, win)
			}
		}
	})
	return rank(counts, opts)
}

// Stacks counts teams made up of exactly StackSize pool members. It also
// returns the number of distinct stacks seen before any filtering.
func Stacks(matches []domain.Match, pool Pool, opts RankOptions) ([]Record, int) {
	counts := make(map[string]*counter)
	forEachTeam(matches, pool, opts, func(members []string, win bool) {
		if len(members) != StackSize {
			return
		}
		tally(counts, members, win)
	})
	return rank(counts, opts), len(counts)
}

// forEachTeam calls fn with the sorted pool members of each team in every
// qualifying match.
func forEachTeam(matches []domain.Match, pool Pool, opts RankOptions, fn func(members []string, win bool)) {
	for i := range matches {
		m := &matches[i]
		if m.QueueID != opts.Queue {
			continue
		}
		if !opts.Since.IsZero() {
			t, ok := m.StartTime()
			if !ok || t.Before(opts.Since) {
				continue
			}
		}

		teams := make(map[int][]string)
		wins := make(map[int]bool)
		var order []int
		for j := range m.Participants {
			p := &m.Participants[j]
			if _, seen := wins[p.TeamID]; !seen {
				wins[p.TeamID] = p.Win
				order = append(order, p.TeamID)
			}
			name, ok := pool[p.PUUID]
			if !ok {
				continue
			}
			teams[p.TeamID] = append(teams[p.TeamID], name)
		}

		for _, teamID := range order {
			members := teams[teamID]
			if len(members) < 2 {
				continue
			}
			sort.Strings(members)
			fn(members, wins[teamID])
		}
	}
}

func tally(counts map[string]*counter, members []string, win bool) {
	key := strings.Join(members, ",")
	c, ok := counts[key]
	if !ok {
		c = &counter{members: append([]string(nil), members...)}
		counts[key] = c
	}
	c.games++
	if win {
		c.wins++
	}
}

func rank(counts map[string]*counter, opts RankOptions) []Record {
	var preferred, backfill []Record
	for key, c := range counts {
		if c.games < opts.MinGames {
			continue
		}
		r := Record{
			Key:     key,
			Members: c.members,
			Games:   c.games,
			Wins:    c.wins,
			Losses:  c.games - c.wins,
			WinRate: float64(c.wins) / float64(c.games) * 100,
		}
		if c.games >= opts.PreferredGames {
			preferred = append(preferred, r)
		} else {
			backfill = append(backfill, r)
		}
	}

	sortRecords(preferred)
	sortRecords(backfill)

	out := preferred
	if opts.Top > 0 && len(out) > opts.Top {
		out = out[:opts.Top]
	}
	for _, r := range backfill {
		if opts.Top > 0 && len(out) >= opts.Top {
			break
		}
		out = append(out, r)
	}
	return out
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].WinRate != rs[j].WinRate {
			return rs[i].WinRate > rs[j].WinRate
		}
		if rs[i].Games != rs[j].Games {
			return rs[i].Games > rs[j].Games
		}
		return rs[i].Key < rs[j].Key
	})
}
