package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// Repo is the status ledger store over user_anime_lists: a derived,
// denormalized index of tracking status kept in sync with the catalog by the
// reconciler. At most one row exists per anime.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert inserts or updates the ledger row for animeID.
func (r *Repo) Upsert(ctx context.Context, animeID int, status models.TrackingStatus) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_anime_lists (anime_id, status, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(anime_id) DO UPDATE SET
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, animeID, string(status))
	if err != nil {
		return fmt.Errorf("upsert ledger %d: %w", animeID, err)
	}
	return nil
}

// Delete removes the ledger row for one title, used when a status is
// cleared back to untracked.
func (r *Repo) Delete(ctx context.Context, animeID int) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM user_anime_lists WHERE anime_id = ?`, animeID); err != nil {
		return fmt.Errorf("delete ledger %d: %w", animeID, err)
	}
	return nil
}

// DeleteAll wipes the ledger. Only the full-parity resync calls this.
func (r *Repo) DeleteAll(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM user_anime_lists`); err != nil {
		return fmt.Errorf("wipe ledger: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, animeID int) (*models.LedgerEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT anime_id, status, rating, progress, updated_at
		FROM user_anime_lists
		WHERE anime_id = ?
	`, animeID)

	var (
		e       models.LedgerEntry
		status  string
		rating  sql.NullInt64
		updated time.Time
	)
	if err := row.Scan(&e.AnimeID, &status, &rating, &e.Progress, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger %d: %w", animeID, err)
	}
	e.Status = models.TrackingStatus(status)
	if rating.Valid {
		v := int(rating.Int64)
		e.Rating = &v
	}
	e.UpdatedAt = updated
	return &e, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_anime_lists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return n, nil
}

// CountByStatus returns per-status totals for the library overview.
func (r *Repo) CountByStatus(ctx context.Context) (map[models.TrackingStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM user_anime_lists GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[models.TrackingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[models.TrackingStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
