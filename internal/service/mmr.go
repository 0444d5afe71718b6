package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/mmr"
	"league-tracker/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

type MMRRefreshResult struct {
	Players    int       `json:"players"`
	Snapshots  int       `json:"snapshots"`
	Errors     int       `json:"errors"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MMRService snapshots rank-derived ratings for every tracked player.
type MMRService struct {
	client  RiotClient
	players *repository.PlayerRepository
	history *repository.MMRHistoryRepository
	lock    *UpdateLock
	logger  zerolog.Logger
	now     func() time.Time
}

func NewMMRService(client RiotClient, players *repository.PlayerRepository, history *repository.MMRHistoryRepository, lock *UpdateLock, logger zerolog.Logger) *MMRService {
	return &MMRService{
		client:  client,
		players: players,
		history: history,
		lock:    lock,
		logger:  logger.With().Str("component", "mmr").Logger(),
		now:     time.Now,
	}
}

// Refresh records one solo and one flex snapshot per ranked player. Players
// registered without a summoner id get it filled in along the way.
func (s *MMRService) Refresh(ctx context.Context) (MMRRefreshResult, error) {
	release, err := s.lock.TryAcquire()
	if err != nil {
		return MMRRefreshResult{}, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, constants.UpdateTimeout)
	defer cancel()

	players, err := s.players.List(ctx)
	if err != nil {
		return MMRRefreshResult{}, err
	}

	result := MMRRefreshResult{Players: len(players), RecordedAt: s.now().UTC()}
	var snapshots, failed atomic.Int32

	pool, err := ants.NewPool(constants.MMRRefreshWorkers)
	if err != nil {
		return result, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, p := range players {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			n, err := s.refreshPlayer(ctx, p, result.RecordedAt)
			if err != nil {
				s.logger.Warn().Err(err).Str("riot_id", p.RiotID).Msg("mmr refresh failed")
				failed.Add(1)
				return
			}
			snapshots.Add(int32(n))
		}); err != nil {
			workers.Done()
			return result, errors.Wrap(err, "submit task to worker pool")
		}
	}
	workers.Wait()

	result.Snapshots = int(snapshots.Load())
	result.Errors = int(failed.Load())
	s.logger.Info().Int("players", result.Players).Int("snapshots", result.Snapshots).Int("errors", result.Errors).Msg("mmr refresh complete")
	return result, nil
}

func (s *MMRService) refreshPlayer(ctx context.Context, p domain.Player, at time.Time) (int, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	if p.SummonerID == "" {
		if summoner, err := s.client.GetSummoner(apiCtx, p.PUUID); err != nil {
			s.logger.Debug().Err(err).Str("riot_id", p.RiotID).Msg("summoner id still unavailable")
		} else if summoner.ID != "" {
			p.SummonerID = summoner.ID
			if err := s.players.Upsert(ctx, &p); err != nil {
				return 0, err
			}
		}
	}

	entries, err := s.client.GetLeagueEntries(apiCtx, p.PUUID)
	if err != nil {
		return 0, err
	}

	// Snapshot on top of the stored history so the in-memory record follows
	// the same cap the repository applies.
	if p.MMR, err = s.history.Records(ctx, p.PUUID); err != nil {
		return 0, err
	}
	n := mmr.Snapshot(&p, entries, at)
	for q, rec := range p.MMR {
		last := rec.History[len(rec.History)-1]
		if !last.At.Equal(at) {
			continue
		}
		if err := s.history.Append(ctx, p.PUUID, q, last); err != nil {
			return 0, err
		}
	}
	return n, nil
}
