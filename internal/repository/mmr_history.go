package repository

import (
	"context"
	"fmt"
	"time"

	"league-tracker/internal/domain"
	"league-tracker/internal/mmr"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// MMRHistoryRepository is the append-only log of rating snapshots per player
// and queue.
type MMRHistoryRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewMMRHistoryRepository(db *sqlx.DB, logger zerolog.Logger) *MMRHistoryRepository {
	return &MMRHistoryRepository{db: db, logger: logger}
}

type mmrSnapshotRow struct {
	ID         string `db:"id"`
	PUUID      string `db:"puuid"`
	Queue      string `db:"queue"`
	Rating     int    `db:"rating"`
	RecordedMs int64  `db:"recorded_ms"`
}

// Append stores one snapshot and evicts the oldest beyond mmr.HistoryLimit.
func (r *MMRHistoryRepository) Append(ctx context.Context, puuid string, queue domain.Queue, point domain.MMRPoint) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := mmrSnapshotRow{
		ID:         id,
		PUUID:      puuid,
		Queue:      string(queue),
		Rating:     point.Rating,
		RecordedMs: point.At.UnixMilli(),
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO mmr_snapshots (id, puuid, queue, rating, recorded_ms)
		VALUES (:id, :puuid, :queue, :rating, :recorded_ms)`, row); err != nil {
		return fmt.Errorf("failed to insert mmr snapshot: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM mmr_snapshots
		WHERE puuid = ? AND queue = ? AND rowid NOT IN (
			SELECT rowid FROM mmr_snapshots
			WHERE puuid = ? AND queue = ?
			ORDER BY recorded_ms DESC, rowid DESC
			LIMIT ?
		)`, puuid, queue, puuid, queue, mmr.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to trim mmr history: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.logger.Debug().Str("puuid", puuid).Str("queue", string(queue)).Int64("evicted", n).Msg("mmr history trimmed")
	}

	return tx.Commit()
}

// Records loads every queue history of a player, oldest point first, with
// Current set to the latest point.
func (r *MMRHistoryRepository) Records(ctx context.Context, puuid string) (map[domain.Queue]*domain.MMRRecord, error) {
	var rows []mmrSnapshotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, puuid, queue, rating, recorded_ms FROM mmr_snapshots
		WHERE puuid = ?
		ORDER BY recorded_ms, rowid`, puuid)
	if err != nil {
		return nil, fmt.Errorf("failed to load mmr history for %s: %w", puuid, err)
	}

	records := make(map[domain.Queue]*domain.MMRRecord)
	for _, row := range rows {
		q := domain.Queue(row.Queue)
		rec, ok := records[q]
		if !ok {
			rec = &domain.MMRRecord{}
			records[q] = rec
		}
		rec.History = append(rec.History, domain.MMRPoint{At: time.UnixMilli(row.RecordedMs).UTC(), Rating: row.Rating})
	}
	for _, rec := range records {
		current := rec.History[len(rec.History)-1].Rating
		rec.Current = &current
	}
	return records, nil
}
