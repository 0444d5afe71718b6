// Package mmr keeps per-queue rating histories and reports how far a rating
// moved over a window.
package mmr

import (
	"time"

	"league-tracker/internal/domain"
	"league-tracker/internal/rank"
)

// HistoryLimit bounds each queue's history; the oldest points are evicted first.
const HistoryLimit = 500

// PromotionDropThreshold is the smallest drop treated as a tier-base artifact
// rather than a real loss.
const PromotionDropThreshold = 100

var rankTypes = map[string]domain.Queue{
	"RANKED_SOLO_5x5": domain.QueueSolo,
	"RANKED_FLEX_SR":  domain.QueueFlex,
}

// QueueForRankType maps a league entry queue type onto a tracked queue.
func QueueForRankType(queueType string) (domain.Queue, bool) {
	q, ok := rankTypes[queueType]
	return q, ok
}

// RecordSnapshot appends rating at the given instant and makes it current,
// keeping the newest HistoryLimit points. MMRHistoryRepository.Append applies
// the same limit to persisted history.
func RecordSnapshot(rec *domain.MMRRecord, at time.Time, rating int) {
	rec.History = append(rec.History, domain.MMRPoint{At: at, Rating: rating})
	if len(rec.History) > HistoryLimit {
		rec.History = append([]domain.MMRPoint(nil), rec.History[len(rec.History)-HistoryLimit:]...)
	}
	current := rating
	rec.Current = &current
}

// DeltaSince returns latest minus the first rating recorded at or after start.
// It is zero with fewer than two points, with no point after start, or when
// the drop is large enough to be a promotion artifact.
func DeltaSince(rec *domain.MMRRecord, start time.Time) int {
	if rec == nil || len(rec.History) < 2 {
		return 0
	}

	latest := rec.History[len(rec.History)-1].Rating
	for _, pt := range rec.History {
		if pt.At.Before(start) {
			continue
		}
		delta := latest - pt.Rating
		if delta < 0 && -delta >= PromotionDropThreshold {
			return 0
		}
		return delta
	}
	return 0
}

// Snapshot folds league entries into player's records. Entries for untracked
// queues or without a rank are skipped. It returns the number recorded.
func Snapshot(player *domain.Player, entries []domain.RankEntry, at time.Time) int {
	if player.MMR == nil {
		player.MMR = make(map[domain.Queue]*domain.MMRRecord)
	}
	n := 0
	for _, e := range entries {
		q, ok := QueueForRankType(e.QueueType)
		if !ok {
			continue
		}
		rating, ok := rank.Estimate(e.Tier, e.Division, e.LeaguePoints)
		if !ok {
			continue
		}
		rec, ok := player.MMR[q]
		if !ok {
			rec = &domain.MMRRecord{}
			player.MMR[q] = rec
		}
		RecordSnapshot(rec, at, rating)
		n++
	}
	return n
}
