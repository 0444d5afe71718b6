package service

import (
	"context"
	"fmt"
	"sort"

	"league-tracker/internal/api"
	"league-tracker/internal/constants"
	"league-tracker/internal/domain"
	"league-tracker/internal/repository"
	"league-tracker/internal/stats"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const TeamUnknown = 0

type LiveTeam struct {
	TeamID  int      `json:"team_id"`
	Players []string `json:"players"`
}

// LiveGame groups the tracked players found in one game in progress.
type LiveGame struct {
	GameID        int64      `json:"game_id"`
	QueueID       int        `json:"queue_id"`
	QueueName     string     `json:"queue_name"`
	GameLengthSec int        `json:"game_length_sec"`
	Teams         []LiveTeam `json:"teams"`
}

// QueueName labels a queue id; ARAM-like queues share one label.
func QueueName(queueID int) string {
	switch {
	case stats.ARAM.Matches(queueID):
		return "ARAM"
	case queueID == domain.QueueRankedSolo:
		return "Solo/Duo"
	case queueID == domain.QueueRankedFlex:
		return "Flex"
	default:
		return fmt.Sprintf("Queue %d", queueID)
	}
}

type LiveService struct {
	client  RiotClient
	players *repository.PlayerRepository
	logger  zerolog.Logger
}

func NewLiveService(client RiotClient, players *repository.PlayerRepository, logger zerolog.Logger) *LiveService {
	return &LiveService{client: client, players: players, logger: logger}
}

type liveHit struct {
	riotID string
	team   int
	game   *api.ActiveGameDTO
}

// Games looks up every tracked player's active game and groups them by game,
// longest running first. Lookup failures are logged and treated as idle.
func (s *LiveService) Games(ctx context.Context) ([]LiveGame, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[liveHit]().WithMaxGoroutines(constants.LiveLookupWorkers)
	for _, player := range players {
		p.Go(func() liveHit {
			apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
			defer cancel()

			game, err := s.client.GetActiveGame(apiCtx, player.PUUID)
			if err != nil {
				s.logger.Warn().Err(err).Str("riot_id", player.RiotID).Msg("active game lookup failed")
				return liveHit{}
			}
			if game == nil || game.GameID <= 0 {
				return liveHit{}
			}
			return liveHit{riotID: player.RiotID, team: game.TeamOf(player.PUUID), game: game}
		})
	}
	return groupLive(p.Wait()), nil
}

func groupLive(hits []liveHit) []LiveGame {
	byGame := make(map[int64]*LiveGame)
	members := make(map[int64]map[int][]string)
	for _, h := range hits {
		if h.game == nil {
			continue
		}
		id := h.game.GameID
		if _, ok := byGame[id]; !ok {
			byGame[id] = &LiveGame{
				GameID:        id,
				QueueID:       h.game.GameQueueConfigID,
				QueueName:     QueueName(h.game.GameQueueConfigID),
				GameLengthSec: h.game.GameLength,
			}
			members[id] = make(map[int][]string)
		}
		team := h.team
		if team != domain.TeamBlue && team != domain.TeamRed {
			team = TeamUnknown
		}
		members[id][team] = append(members[id][team], h.riotID)
	}

	out := make([]LiveGame, 0, len(byGame))
	for id, g := range byGame {
		g.Teams = []LiveTeam{}
		for _, team := range []int{domain.TeamBlue, domain.TeamRed, TeamUnknown} {
			names := members[id][team]
			if len(names) == 0 {
				continue
			}
			sort.Strings(names)
			g.Teams = append(g.Teams, LiveTeam{TeamID: team, Players: names})
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameLengthSec != out[j].GameLengthSec {
			return out[i].GameLengthSec > out[j].GameLengthSec
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}
