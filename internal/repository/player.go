package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"league-tracker/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewPlayerRepository(db *sqlx.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger}
}

type playerRow struct {
	PUUID      string         `db:"puuid"`
	RiotID     string         `db:"riot_id"`
	GameName   string         `db:"game_name"`
	TagLine    string         `db:"tag_line"`
	SummonerID sql.NullString `db:"summoner_id"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r playerRow) toDomain() domain.Player {
	return domain.Player{
		PUUID:      r.PUUID,
		RiotID:     r.RiotID,
		GameName:   r.GameName,
		TagLine:    r.TagLine,
		SummonerID: r.SummonerID.String,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

const playerColumns = `puuid, riot_id, game_name, tag_line, summoner_id, created_at, updated_at`

// Upsert inserts or refreshes a player keyed by PUUID. The original creation
// time is kept, and an empty summoner id never clears a stored one.
func (r *PlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	now := time.Now().UTC()
	row := playerRow{
		PUUID:      player.PUUID,
		RiotID:     player.RiotID,
		GameName:   player.GameName,
		TagLine:    player.TagLine,
		SummonerID: sql.NullString{String: player.SummonerID, Valid: player.SummonerID != ""},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES (:puuid, :riot_id, :game_name, :tag_line, :summoner_id, :created_at, :updated_at)
		ON CONFLICT (puuid) DO UPDATE SET
			riot_id = excluded.riot_id,
			game_name = excluded.game_name,
			tag_line = excluded.tag_line,
			summoner_id = COALESCE(excluded.summoner_id, players.summoner_id),
			updated_at = excluded.updated_at`, row)
	if err != nil {
		r.logger.Error().Err(err).Str("puuid", player.PUUID).Msg("failed to upsert player")
		return fmt.Errorf("failed to upsert player %s: %w", player.PUUID, err)
	}

	r.logger.Debug().Str("puuid", player.PUUID).Str("riot_id", player.RiotID).Msg("player upserted")
	return nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	var rows []playerRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+playerColumns+` FROM players ORDER BY riot_id COLLATE NOCASE`); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	players := make([]domain.Player, len(rows))
	for i, row := range rows {
		players[i] = row.toDomain()
	}
	return players, nil
}

// GetByRiotID matches case-insensitively. It returns nil when no player has
// that id.
func (r *PlayerRepository) GetByRiotID(ctx context.Context, riotID string) (*domain.Player, error) {
	return r.get(ctx, `SELECT `+playerColumns+` FROM players WHERE riot_id = ? COLLATE NOCASE`, riotID)
}

func (r *PlayerRepository) GetByPUUID(ctx context.Context, puuid string) (*domain.Player, error) {
	return r.get(ctx, `SELECT `+playerColumns+` FROM players WHERE puuid = ?`, puuid)
}

func (r *PlayerRepository) get(ctx context.Context, query string, arg string) (*domain.Player, error) {
	var row playerRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", arg, err)
	}
	player := row.toDomain()
	return &player, nil
}
