package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"league-tracker/internal/constants"
	"league-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// MatchRepository stores match details by id plus each player's ordered index
// of match ids. Stored matches are never rewritten.
type MatchRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

type matchRow struct {
	MatchID   string    `db:"match_id"`
	QueueID   int       `db:"queue_id"`
	StartMs   int64     `db:"start_ms"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

func newMatchRow(m *domain.Match) (matchRow, error) {
	payload, err := sonic.MarshalString(m)
	if err != nil {
		return matchRow{}, fmt.Errorf("failed to encode match %s: %w", m.ID, err)
	}
	var startMs int64
	if t, ok := m.StartTime(); ok {
		startMs = t.UnixMilli()
	}
	return matchRow{
		MatchID:   m.ID,
		QueueID:   m.QueueID,
		StartMs:   startMs,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func decodeMatches(payloads []string) ([]domain.Match, error) {
	matches := make([]domain.Match, len(payloads))
	for i, p := range payloads {
		if err := sonic.UnmarshalString(p, &matches[i]); err != nil {
			return nil, fmt.Errorf("failed to decode match payload: %w", err)
		}
	}
	return matches, nil
}

// Save stores a match detail. Saving an id that is already stored is a no-op.
func (r *MatchRepository) Save(ctx context.Context, match *domain.Match) error {
	return r.SaveBatch(ctx, []domain.Match{*match})
}

func (r *MatchRepository) SaveBatch(ctx context.Context, matches []domain.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(matches); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(matches))

		for j := i; j < end; j++ {
			row, err := newMatchRow(&matches[j])
			if err != nil {
				return err
			}
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO matches (match_id, queue_id, start_ms, payload, created_at)
				VALUES (:match_id, :queue_id, :start_ms, :payload, :created_at)
				ON CONFLICT (match_id) DO NOTHING`, row)
			if err != nil {
				return fmt.Errorf("failed to insert match %s: %w", row.MatchID, err)
			}
		}
	}

	return tx.Commit()
}

// Get returns nil when the match is not stored.
func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM matches WHERE match_id = ?`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}

	var m domain.Match
	if err := sonic.UnmarshalString(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to decode match %s: %w", matchID, err)
	}
	return &m, nil
}

func (r *MatchRepository) Exists(ctx context.Context, matchID string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM matches WHERE match_id = ?`, matchID); err != nil {
		return false, fmt.Errorf("failed to check match %s: %w", matchID, err)
	}
	return n > 0, nil
}

// Index appends match ids to a player's index, skipping ids already indexed.
// It returns how many ids were new.
func (r *MatchRepository) Index(ctx context.Context, puuid string, matchIDs ...string) (int, error) {
	if len(matchIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, id := range matchIDs {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO player_match_index (puuid, match_id, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM player_match_index WHERE puuid = ?))
			ON CONFLICT (puuid, match_id) DO NOTHING`, puuid, id, puuid)
		if err != nil {
			return 0, fmt.Errorf("failed to index match %s for %s: %w", id, puuid, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit match index: %w", err)
	}
	return added, nil
}

// IndexedIDs lists a player's indexed match ids in insertion order.
func (r *MatchRepository) IndexedIDs(ctx context.Context, puuid string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT match_id FROM player_match_index WHERE puuid = ? ORDER BY seq`, puuid)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed matches for %s: %w", puuid, err)
	}
	return ids, nil
}

// MissingDetails lists indexed ids of a player whose detail is not stored.
func (r *MatchRepository) MissingDetails(ctx context.Context, puuid string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT i.match_id FROM player_match_index i
		LEFT JOIN matches m ON m.match_id = i.match_id
		WHERE i.puuid = ? AND m.match_id IS NULL
		ORDER BY i.seq`, puuid)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing matches for %s: %w", puuid, err)
	}
	return ids, nil
}

// ForPlayer returns the stored matches indexed for a player, newest first.
func (r *MatchRepository) ForPlayer(ctx context.Context, puuid string) ([]domain.Match, error) {
	var payloads []string
	err := r.db.SelectContext(ctx, &payloads, `
		SELECT m.payload FROM player_match_index i
		JOIN matches m ON m.match_id = i.match_id
		WHERE i.puuid = ?
		ORDER BY m.start_ms DESC, i.seq DESC`, puuid)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for %s: %w", puuid, err)
	}
	return decodeMatches(payloads)
}

// List returns stored matches of the given queues, newest first. No queue ids
// means every queue; a zero since means no lower bound.
func (r *MatchRepository) List(ctx context.Context, queueIDs []int, since time.Time) ([]domain.Match, error) {
	query := `SELECT payload FROM matches WHERE 1 = 1`
	var args []any
	if len(queueIDs) > 0 {
		query += ` AND queue_id IN (?)`
		args = append(args, queueIDs)
	}
	if !since.IsZero() {
		query += ` AND start_ms >= ?`
		args = append(args, since.UnixMilli())
	}
	query += ` ORDER BY start_ms DESC, match_id`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build match query: %w", err)
	}

	var payloads []string
	if err := r.db.SelectContext(ctx, &payloads, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return decodeMatches(payloads)
}
