package stats

import (
	"league-tracker/internal/domain"
	"league-tracker/internal/window"
)

// QueueFilter selects matches by queue id. The zero value matches any queue.
type QueueFilter struct {
	ids []int
}

var AnyQueue = QueueFilter{}

// ARAM buckets every queue id the match API uses for the random-team mode.
var ARAM = QueueSet(domain.QueueARAM, domain.QueueARAMEvent)

func Queue(id int) QueueFilter { return QueueFilter{ids: []int{id}} }

func QueueSet(ids ...int) QueueFilter { return QueueFilter{ids: append([]int(nil), ids...)} }

func (f QueueFilter) Matches(queueID int) bool {
	if len(f.ids) == 0 {
		return true
	}
	for _, id := range f.ids {
		if id == queueID {
			return true
		}
	}
	return false
}

// IDs lists the concrete queue ids in the filter, nil for AnyQueue.
func (f QueueFilter) IDs() []int { return append([]int(nil), f.ids...) }

type Summary struct {
	Games   int     `json:"games"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	KDA     float64 `json:"kda"`
}

func (s Summary) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games) * 100
}

func kda(kills, deaths, assists int) float64 {
	return float64(kills+assists) / float64(max(1, deaths))
}

// Aggregate accumulates the record of puuid over matches. When w is set,
// matches without a start time or outside w are skipped.
func Aggregate(matches []domain.Match, puuid string, filter QueueFilter, w *window.Window) Summary {
	var s Summary
	for i := range matches {
		m := &matches[i]
		if w != nil {
			t, ok := m.StartTime()
			if !ok || !w.Contains(t) {
				continue
			}
		}
		if !filter.Matches(m.QueueID) {
			continue
		}
		p, ok := m.Participant(puuid)
		if !ok {
			continue
		}

		s.Games++
		if p.Win {
			s.Wins++
		} else {
			s.Losses++
		}
		s.Kills += p.Kills
		s.Deaths += p.Deaths
		s.Assists += p.Assists
	}

	if s.Games > 0 {
		s.KDA = kda(s.Kills, s.Deaths, s.Assists)
	}
	return s
}

// AggregateEach runs Aggregate once per queue id of filter and combines the
// results with Combine.
func AggregateEach(matches []domain.Match, puuid string, filter QueueFilter, w *window.Window) Summary {
	ids := filter.IDs()
	if len(ids) <= 1 {
		return Aggregate(matches, puuid, filter, w)
	}
	parts := make([]Summary, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, Aggregate(matches, puuid, Queue(id), w))
	}
	return Combine(parts...)
}

// Combine sums counters and averages KDA weighted by games. The combined KDA
// is an approximation: it is not recomputed from the summed K/D/A.
func Combine(parts ...Summary) Summary {
	var out Summary
	var weighted float64
	for _, p := range parts {
		out.Games += p.Games
		out.Wins += p.Wins
		out.Losses += p.Losses
		out.Kills += p.Kills
		out.Deaths += p.Deaths
		out.Assists += p.Assists
		weighted += p.KDA * float64(p.Games)
	}
	if out.Games > 0 {
		out.KDA = weighted / float64(out.Games)
	}
	return out
}
