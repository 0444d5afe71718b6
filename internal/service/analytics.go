package service

import (
	"context"
	"sort"
	"time"

	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/grief"
	"league-tracker/internal/mmr"
	"league-tracker/internal/repository"
	"league-tracker/internal/stats"
	"league-tracker/internal/window"

	"github.com/rs/zerolog"
)

type StackReport struct {
	Since        time.Time      `json:"since"`
	UniqueStacks int            `json:"unique_stacks"`
	Stacks       []stats.Record `json:"stacks"`
}

type QueueCount struct {
	QueueID int    `json:"queue_id"`
	Name    string `json:"name"`
	Games   int    `json:"games"`
}

// AnalyticsService answers questions that span the stored match history:
// duo and stack synergy, grief reports and queue counts.
type AnalyticsService struct {
	client    RiotClient
	players   *PlayerService
	playerDB  *repository.PlayerRepository
	matches   *repository.MatchRepository
	evaluator *grief.Evaluator
	windows   *window.Calculator
	logger    zerolog.Logger
}

func NewAnalyticsService(
	client RiotClient,
	players *PlayerService,
	playerDB *repository.PlayerRepository,
	matches *repository.MatchRepository,
	evaluator *grief.Evaluator,
	windows *window.Calculator,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		client:    client,
		players:   players,
		playerDB:  playerDB,
		matches:   matches,
		evaluator: evaluator,
		windows:   windows,
		logger:    logger,
	}
}

// Duos ranks pairs of tracked players by win rate in opts.Queue.
func (s *AnalyticsService) Duos(ctx context.Context, opts stats.RankOptions) ([]stats.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	pool, matches, err := s.load(ctx, opts)
	if err != nil {
		return nil, err
	}
	return stats.Duos(matches, pool, opts), nil
}

// Stacks ranks full five-player stacks. A zero opts.Since means the season
// start.
func (s *AnalyticsService) Stacks(ctx context.Context, opts stats.RankOptions) (*StackReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if opts.Since.IsZero() {
		opts.Since = s.windows.SeasonStart()
	}
	pool, matches, err := s.load(ctx, opts)
	if err != nil {
		return nil, err
	}
	records, unique := stats.Stacks(matches, pool, opts)
	return &StackReport{Since: opts.Since, UniqueStacks: unique, Stacks: records}, nil
}

func (s *AnalyticsService) load(ctx context.Context, opts stats.RankOptions) (stats.Pool, []domain.Match, error) {
	players, err := s.playerDB.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	var queues []int
	if opts.Queue > 0 {
		queues = []int{opts.Queue}
	}
	matches, err := s.matches.List(ctx, queues, opts.Since)
	if err != nil {
		return nil, nil, err
	}
	return poolOf(players), matches, nil
}

// Grief scores the player's most recent ranked solo games, at most games. The player's
// current solo tier selects the baselines; without one the default applies.
func (s *AnalyticsService) Grief(ctx context.Context, riotID string, games int) (*grief.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	player, err := s.players.Find(ctx, riotID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ForPlayer(ctx, player.PUUID)
	if err != nil {
		return nil, err
	}

	if tier := s.soloTier(ctx, player.PUUID); tier != "" {
		for i := range matches {
			if p, ok := matches[i].Participant(player.PUUID); ok && p.Tier == "" {
				p.Tier = tier
			}
		}
	}

	report, err := s.evaluator.EvaluateMany(matches, player.PUUID, games)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *AnalyticsService) soloTier(ctx context.Context, puuid string) string {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	entries, err := s.client.GetLeagueEntries(apiCtx, puuid)
	if err != nil {
		s.logger.Warn().Err(err).Str("puuid", puuid).Msg("league lookup failed, using default tier")
		return ""
	}
	for _, e := range entries {
		if q, ok := mmr.QueueForRankType(e.QueueType); ok && q == domain.QueueSolo {
			return e.Tier
		}
	}
	return ""
}

// PlayerQueues counts the stored matches of one player per queue.
func (s *AnalyticsService) PlayerQueues(ctx context.Context, riotID string) ([]QueueCount, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.players.Find(ctx, riotID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ForPlayer(ctx, player.PUUID)
	if err != nil {
		return nil, err
	}
	return queueCounts(matches), nil
}

// PoolQueues counts every stored match per queue.
func (s *AnalyticsService) PoolQueues(ctx context.Context) ([]QueueCount, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	matches, err := s.matches.List(ctx, nil, time.Time{})
	if err != nil {
		return nil, err
	}
	return queueCounts(matches), nil
}

func queueCounts(matches []domain.Match) []QueueCount {
	counts := stats.QueueCounts(matches)
	out := make([]QueueCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, QueueCount{QueueID: id, Name: QueueName(id), Games: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].QueueID < out[j].QueueID
	})
	return out
}
