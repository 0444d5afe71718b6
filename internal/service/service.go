package service

import (
	"context"
	"strings"
	"sync"

	"league-tracker/internal/api"
	"league-tracker/internal/domain"

	"github.com/cockroachdb/errors"
)

var (
	ErrUpdateInProgress = errors.New("update already running")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrInvalidRiotID    = errors.New("riot id must look like Name#TAG")
)

// RiotClient is the slice of the Riot API the services depend on.
type RiotClient interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*api.AccountDTO, error)
	GetAccountByPUUID(ctx context.Context, puuid string) (*api.AccountDTO, error)
	GetSummoner(ctx context.Context, puuid string) (*api.SummonerDTO, error)
	GetLeagueEntries(ctx context.Context, puuid string) ([]domain.RankEntry, error)
	GetMatchIDs(ctx context.Context, puuid string, start, count, queue int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	GetActiveGame(ctx context.Context, puuid string) (*api.ActiveGameDTO, error)
}

// UpdateLock serializes every read-modify-write cycle against the store:
// incremental updates, season backfills and MMR refreshes.
type UpdateLock struct {
	mu sync.Mutex
}

func NewUpdateLock() *UpdateLock {
	return &UpdateLock{}
}

// TryAcquire never blocks. The returned func releases the lock.
func (l *UpdateLock) TryAcquire() (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrUpdateInProgress
	}
	return l.mu.Unlock, nil
}

// ParseRiotID splits "Name#TAG" on the first '#'.
func ParseRiotID(riotID string) (string, string, error) {
	name, tag, ok := strings.Cut(strings.TrimSpace(riotID), "#")
	name, tag = strings.TrimSpace(name), strings.TrimSpace(tag)
	if !ok || name == "" || tag == "" {
		return "", "", errors.Wrapf(ErrInvalidRiotID, "%q", riotID)
	}
	return name, tag, nil
}

// poolOf maps each player's PUUID to their riot id.
func poolOf(players []domain.Player) map[string]string {
	pool := make(map[string]string, len(players))
	for _, p := range players {
		pool[p.PUUID] = p.RiotID
	}
	return pool
}
