package stats

import (
	"sort"

	"league-tracker/internal/domain"
)

type ChampionRecord struct {
	Champion string  `json:"champion"`
	Games    int     `json:"games"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
}

// TopChampions tallies champion W-L for puuid over the first limit matches of
// the queue, most played first.
func TopChampions(matches []domain.Match, puuid string, filter QueueFilter, limit, top int) []ChampionRecord {
	byChamp := make(map[string]*ChampionRecord)
	seen := 0
	for i := range matches {
		if limit > 0 && seen >= limit {
			break
		}
		m := &matches[i]
		if !filter.Matches(m.QueueID) {
			continue
		}
		p, ok := m.Participant(puuid)
		if !ok {
			continue
		}
		seen++

		name := p.ChampionName
		if name == "" {
			name = "Unknown"
		}
		rec, ok := byChamp[name]
		if !ok {
			rec = &ChampionRecord{Champion: name}
			byChamp[name] = rec
		}
		rec.Games++
		if p.Win {
			rec.Wins++
		} else {
			rec.Losses++
		}
	}

	out := make([]ChampionRecord, 0, len(byChamp))
	for _, rec := range byChamp {
		rec.WinRate = float64(rec.Wins) / float64(rec.Games) * 100
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Champion < out[j].Champion
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

// Recent aggregates the first n matches of puuid regardless of queue.
func Recent(matches []domain.Match, puuid string, n int) Summary {
	var picked []domain.Match
	for i := range matches {
		if n > 0 && len(picked) >= n {
			break
		}
		if _, ok := matches[i].Participant(puuid); ok {
			picked = append(picked, matches[i])
		}
	}
	return Aggregate(picked, puuid, AnyQueue, nil)
}

// QueueCounts counts matches per queue id.
func QueueCounts(matches []domain.Match) map[int]int {
	counts := make(map[int]int)
	for i := range matches {
		counts[matches[i].QueueID]++
	}
	return counts
}
