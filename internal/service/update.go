package service

import (
	"context"
	"sync/atomic"
	"time"

	"league-tracker/internal/config"
	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/repository"
	"league-tracker/internal/window"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type UpdateMode string

const (
	UpdateIncremental UpdateMode = "incremental"
	UpdateSeason      UpdateMode = "season"
)

type UpdateResult struct {
	Mode       UpdateMode `json:"mode"`
	Players    int        `json:"players"`
	NewMatches int        `json:"new_matches"`
	Filled     int        `json:"filled"`
	Errors     int        `json:"errors"`
	Cutoff     time.Time  `json:"cutoff"`
	FinishedAt time.Time  `json:"finished_at"`
}

// UpdateService pulls match history for every tracked player into the store.
type UpdateService struct {
	client  RiotClient
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	state   *repository.AppStateRepository
	lock    *UpdateLock
	windows *window.Calculator
	workers int
	logger  zerolog.Logger
	now     func() time.Time
}

func NewUpdateService(
	client RiotClient,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	state *repository.AppStateRepository,
	lock *UpdateLock,
	windows *window.Calculator,
	cfg *config.Config,
	logger zerolog.Logger,
) *UpdateService {
	return &UpdateService{
		client:  client,
		players: players,
		matches: matches,
		state:   state,
		lock:    lock,
		windows: windows,
		workers: cfg.MatchFetchWorkers,
		logger:  logger.With().Str("component", "update").Logger(),
		now:     time.Now,
	}
}

// Incremental fills missing details for indexed matches and pulls the latest
// match ids of every player, stopping at matches older than six hours before
// the current daily window.
func (s *UpdateService) Incremental(ctx context.Context) (UpdateResult, error) {
	cutoff := s.windows.Daily(s.now()).Start.Add(-constants.UpdateCutoffSlack)
	return s.run(ctx, UpdateIncremental, cutoff, constants.RecentMatchIDs, false)
}

// Season pages through match ids until it reaches the season start. Re-running
// it only fetches what is not stored yet.
func (s *UpdateService) Season(ctx context.Context) (UpdateResult, error) {
	return s.run(ctx, UpdateSeason, s.windows.SeasonStart(), constants.SeasonPageSize, true)
}

func (s *UpdateService) LastUpdate(ctx context.Context) (time.Time, bool, error) {
	return s.state.GetTime(ctx, constants.AppStateLastUpdate)
}

func (s *UpdateService) run(ctx context.Context, mode UpdateMode, cutoff time.Time, pageSize int, paged bool) (UpdateResult, error) {
	release, err := s.lock.TryAcquire()
	if err != nil {
		return UpdateResult{}, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, constants.UpdateTimeout)
	defer cancel()

	start := time.Now()
	result := UpdateResult{Mode: mode, Cutoff: cutoff}

	players, err := s.players.List(ctx)
	if err != nil {
		return result, err
	}

	s.logger.Info().Str("mode", string(mode)).Int("players", len(players)).Time("cutoff", cutoff).Msg("update starting")

	for _, p := range players {
		if err := s.syncPlayer(ctx, p, cutoff, pageSize, paged, &result); err != nil {
			s.logger.Error().Err(err).Str("riot_id", p.RiotID).Msg("update aborted")
			return result, err
		}
		result.Players++
	}

	result.FinishedAt = s.now().UTC()
	if err := s.state.SetTime(ctx, constants.AppStateLastUpdate, result.FinishedAt); err != nil {
		return result, err
	}

	s.logger.Info().
		Str("mode", string(mode)).
		Int("new", result.NewMatches).
		Int("filled", result.Filled).
		Int("errors", result.Errors).
		Dur("took", time.Since(start)).
		Msg("update complete")
	return result, nil
}

// syncPlayer returns an error only for store or context failures. Riot API
// failures are counted in result.Errors and skipped.
func (s *UpdateService) syncPlayer(ctx context.Context, p domain.Player, cutoff time.Time, pageSize int, paged bool, result *UpdateResult) error {
	if paged {
		if err := s.refreshRiotID(ctx, &p); err != nil {
			return err
		}
	}

	missing, err := s.matches.MissingDetails(ctx, p.PUUID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fetched, failed, err := s.fetchAll(ctx, missing)
		if err != nil {
			return err
		}
		result.Errors += failed

		// Already indexed, so details are kept whatever their age.
		var keep []domain.Match
		for _, id := range missing {
			if m, ok := fetched[id]; ok {
				keep = append(keep, *m)
			}
		}
		if err := s.matches.SaveBatch(ctx, keep); err != nil {
			return err
		}
		result.Filled += len(keep)
	}

	for start := 0; ; start += pageSize {
		ids, err := s.client.GetMatchIDs(ctx, p.PUUID, start, pageSize, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Str("riot_id", p.RiotID).Msg("failed to list match ids")
			result.Errors++
			return nil
		}
		if len(ids) == 0 {
			return nil
		}

		reachedCutoff, err := s.ingest(ctx, p, ids, cutoff, result)
		if err != nil {
			return err
		}
		if reachedCutoff || !paged {
			return nil
		}
	}
}

// refreshRiotID picks up display name changes. Lookup failures keep the stored
// name.
func (s *UpdateService) refreshRiotID(ctx context.Context, p *domain.Player) error {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	acc, err := s.client.GetAccountByPUUID(apiCtx, p.PUUID)
	if err != nil {
		s.logger.Debug().Err(err).Str("riot_id", p.RiotID).Msg("account lookup failed, keeping stored riot id")
		return nil
	}
	if acc.GameName == "" || acc.TagLine == "" {
		return nil
	}
	riotID := acc.GameName + "#" + acc.TagLine
	if riotID == p.RiotID {
		return nil
	}

	s.logger.Info().Str("old", p.RiotID).Str("new", riotID).Msg("riot id changed")
	p.RiotID, p.GameName, p.TagLine = riotID, acc.GameName, acc.TagLine
	return s.players.Upsert(ctx, p)
}

// ingest walks ids newest first. Stored matches are only indexed; new ones are
// fetched a few at a time and stored until one started before cutoff, so
// nothing past the first pre-cutoff batch is downloaded.
func (s *UpdateService) ingest(ctx context.Context, p domain.Player, ids []string, cutoff time.Time, result *UpdateResult) (bool, error) {
	batch := max(1, s.workers)
	var toSave []domain.Match
	var toIndex []string
	reachedCutoff := false

	for next := 0; next < len(ids) && !reachedCutoff; {
		var chunk, unknown []string
		stored := make(map[string]bool)
		for ; next < len(ids) && len(unknown) < batch; next++ {
			id := ids[next]
			ok, err := s.matches.Exists(ctx, id)
			if err != nil {
				return false, err
			}
			chunk = append(chunk, id)
			stored[id] = ok
			if !ok {
				unknown = append(unknown, id)
			}
		}

		fetched, failed, err := s.fetchAll(ctx, unknown)
		if err != nil {
			return false, err
		}
		result.Errors += failed

		for _, id := range chunk {
			if stored[id] {
				toIndex = append(toIndex, id)
				continue
			}
			m, ok := fetched[id]
			if !ok {
				continue
			}
			if startedBefore(m, cutoff) {
				reachedCutoff = true
				break
			}
			toSave = append(toSave, *m)
			toIndex = append(toIndex, id)
		}
	}

	if err := s.matches.SaveBatch(ctx, toSave); err != nil {
		return false, err
	}
	if _, err := s.matches.Index(ctx, p.PUUID, toIndex...); err != nil {
		return false, err
	}
	result.NewMatches += len(toSave)

	s.logger.Debug().
		Str("riot_id", p.RiotID).
		Int("ids", len(ids)).
		Int("new", len(toSave)).
		Bool("reached_cutoff", reachedCutoff).
		Msg("match ids ingested")
	return reachedCutoff, nil
}

// fetchAll downloads match details with at most s.workers requests in flight.
// Failed downloads are logged and counted, not returned.
func (s *UpdateService) fetchAll(ctx context.Context, ids []string) (map[string]*domain.Match, int, error) {
	results := make([]*domain.Match, len(ids))
	var failed atomic.Int32

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.workers))
	for i, id := range ids {
		g.Go(func() error {
			apiCtx, cancel := context.WithTimeout(gCtx, constants.ExternalAPITimeout)
			defer cancel()

			m, err := s.client.GetMatch(apiCtx, id)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				s.logger.Warn().Err(err).Str("match_id", id).Msg("failed to fetch match")
				failed.Add(1)
				return nil
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "match fetch cancelled")
	}

	out := make(map[string]*domain.Match, len(ids))
	for i, m := range results {
		if m != nil {
			out[ids[i]] = m
		}
	}
	return out, int(failed.Load()), nil
}

func startedBefore(m *domain.Match, cutoff time.Time) bool {
	t, ok := m.StartTime()
	return ok && t.Before(cutoff)
}
