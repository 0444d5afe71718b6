package service

import (
	"context"
	"fmt"

	"league-tracker/internal/api"
	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/mmr"
	"league-tracker/internal/repository"
	"league-tracker/internal/stats"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerService struct {
	client  RiotClient
	repo    *repository.PlayerRepository
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func NewPlayerService(client RiotClient, repo *repository.PlayerRepository, matches *repository.MatchRepository, logger zerolog.Logger) *PlayerService {
	return &PlayerService{client: client, repo: repo, matches: matches, logger: logger}
}

// RankedLine is one league entry as shown by player info.
type RankedLine struct {
	Queue        domain.Queue `json:"queue"`
	Tier         string       `json:"tier"`
	Division     string       `json:"division"`
	LeaguePoints int          `json:"league_points"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
	WinRate      float64      `json:"win_rate"`
}

type PlayerInfo struct {
	RiotID        string                 `json:"riot_id"`
	PUUID         string                 `json:"puuid"`
	Tracked       bool                   `json:"tracked"`
	SummonerLevel int                    `json:"summoner_level"`
	Ranked        []RankedLine           `json:"ranked"`
	RecentKDA     stats.Summary          `json:"recent_kda"`
	TopChampions  []stats.ChampionRecord `json:"top_champions"`
}

// AddPlayer verifies riotID against the account API and registers it. Adding
// a player twice refreshes the display name and keeps the original record.
func (s *PlayerService) AddPlayer(ctx context.Context, riotID string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	name, tag, err := ParseRiotID(riotID)
	if err != nil {
		return nil, err
	}

	acc, err := s.client.GetAccountByRiotID(ctx, name, tag)
	if err != nil {
		s.logger.Error().Err(err).Str("riot_id", riotID).Msg("failed to resolve riot id")
		return nil, resolveError(riotID, err)
	}
	if acc.GameName != "" {
		name = acc.GameName
	}
	if acc.TagLine != "" {
		tag = acc.TagLine
	}

	player := &domain.Player{
		PUUID:    acc.PUUID,
		RiotID:   fmt.Sprintf("%s#%s", name, tag),
		GameName: name,
		TagLine:  tag,
	}

	summoner, err := s.client.GetSummoner(ctx, acc.PUUID)
	if err != nil {
		s.logger.Warn().Err(err).Str("puuid", acc.PUUID).Msg("summoner lookup failed, registering without summoner id")
	} else {
		player.SummonerID = summoner.ID
	}

	if err := s.repo.Upsert(ctx, player); err != nil {
		return nil, err
	}

	stored, err := s.repo.GetByPUUID(ctx, player.PUUID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("puuid", player.PUUID).Str("riot_id", player.RiotID).Msg("player registered")
	return stored, nil
}

func (s *PlayerService) List(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.List(ctx)
}

// Find looks a tracked player up by riot id, case-insensitively.
func (s *PlayerService) Find(ctx context.Context, riotID string) (*domain.Player, error) {
	if _, _, err := ParseRiotID(riotID); err != nil {
		return nil, err
	}
	player, err := s.repo.GetByRiotID(ctx, riotID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, errors.Wrapf(ErrPlayerNotFound, "%s", riotID)
	}
	return player, nil
}

// Info reports ranked standing, recent KDA and most played solo champions.
// Players outside the pool are resolved through the account API; they have no
// stored matches.
func (s *PlayerService) Info(ctx context.Context, riotID string) (*PlayerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	name, tag, err := ParseRiotID(riotID)
	if err != nil {
		return nil, err
	}

	info := &PlayerInfo{RiotID: fmt.Sprintf("%s#%s", name, tag), Ranked: []RankedLine{}}
	player, err := s.repo.GetByRiotID(ctx, riotID)
	if err != nil {
		return nil, err
	}
	if player != nil {
		info.PUUID, info.RiotID, info.Tracked = player.PUUID, player.RiotID, true
	} else {
		acc, err := s.client.GetAccountByRiotID(ctx, name, tag)
		if err != nil {
			return nil, resolveError(riotID, err)
		}
		info.PUUID = acc.PUUID
	}

	var entries []domain.RankEntry
	var matches []domain.Match
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summoner, err := s.client.GetSummoner(gCtx, info.PUUID)
		if err != nil {
			s.logger.Warn().Err(err).Str("puuid", info.PUUID).Msg("summoner lookup failed")
			return nil
		}
		info.SummonerLevel = summoner.SummonerLevel
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.client.GetLeagueEntries(gCtx, info.PUUID)
		return err
	})
	if info.Tracked {
		g.Go(func() error {
			var err error
			matches, err = s.matches.ForPlayer(gCtx, info.PUUID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("riot_id", riotID).Msg("failed to load player info")
		return nil, errors.Wrap(err, "failed to load player info")
	}

	for _, e := range entries {
		q, ok := mmr.QueueForRankType(e.QueueType)
		if !ok {
			continue
		}
		line := RankedLine{
			Queue:        q,
			Tier:         e.Tier,
			Division:     e.Division,
			LeaguePoints: e.LeaguePoints,
			Wins:         e.Wins,
			Losses:       e.Losses,
		}
		if games := e.Wins + e.Losses; games > 0 {
			line.WinRate = float64(e.Wins) / float64(games) * 100
		}
		info.Ranked = append(info.Ranked, line)
	}

	info.RecentKDA = stats.Recent(matches, info.PUUID, constants.RecentGamesForKDA)
	info.TopChampions = stats.TopChampions(matches, info.PUUID, stats.Queue(domain.QueueRankedSolo), constants.ChampionSampleGames, constants.TopChampions)
	return info, nil
}

func resolveError(riotID string, err error) error {
	if api.IsNotFound(err) {
		return errors.Wrapf(ErrPlayerNotFound, "%s: %v", riotID, err)
	}
	return errors.Wrapf(err, "failed to resolve %s", riotID)
}
