package ratings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// ErrInvalidRating rejects ratings outside the 0..10 scale.
var ErrInvalidRating = errors.New("rating must be between 0 and 10")

// Repo stores per-title ratings and mirrors rating/progress into the animes
// row so list views render without a join.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Set(ctx context.Context, rating models.Rating) error {
	if rating.Rating < 0 || rating.Rating > 10 {
		return ErrInvalidRating
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_ratings (anime_id, rating, review, watched_episodes, is_rewatching, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(anime_id) DO UPDATE SET
			rating = excluded.rating,
			review = excluded.review,
			watched_episodes = excluded.watched_episodes,
			is_rewatching = excluded.is_rewatching,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = CURRENT_TIMESTAMP
	`, rating.AnimeID, rating.Rating, nullStr(rating.Review), rating.WatchedEpisodes,
		rating.IsRewatching, rating.StartedAt, rating.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert rating %d: %w", rating.AnimeID, err)
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE animes SET user_rating = ?, watched_episodes = ? WHERE id = ?
	`, rating.Rating, rating.WatchedEpisodes, rating.AnimeID)
	if err != nil {
		return fmt.Errorf("mirror rating %d: %w", rating.AnimeID, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, animeID int) (*models.Rating, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT anime_id, rating, review, watched_episodes, is_rewatching, started_at, completed_at, updated_at
		FROM user_ratings
		WHERE anime_id = ?
	`, animeID)

	var (
		m         models.Rating
		review    sql.NullString
		started   sql.NullString
		completed sql.NullString
		updated   time.Time
	)
	err := row.Scan(&m.AnimeID, &m.Rating, &review, &m.WatchedEpisodes,
		&m.IsRewatching, &started, &completed, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get rating %d: %w", animeID, err)
	}

	m.Review = review.String
	if started.Valid {
		m.StartedAt = &started.String
	}
	if completed.Valid {
		m.CompletedAt = &completed.String
	}
	m.UpdatedAt = updated
	return &m, nil
}

// Delete removes the rating row and clears the mirrored columns.
func (r *Repo) Delete(ctx context.Context, animeID int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM user_ratings WHERE anime_id = ?`, animeID)
	if err != nil {
		return false, fmt.Errorf("delete rating %d: %w", animeID, err)
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE animes SET user_rating = NULL, watched_episodes = 0 WHERE id = ?
	`, animeID)
	if err != nil {
		return false, fmt.Errorf("clear mirrored rating %d: %w", animeID, err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetProgress updates the episode counter in both tables.
func (r *Repo) SetProgress(ctx context.Context, animeID, watchedEpisodes int) error {
	if watchedEpisodes < 0 {
		return fmt.Errorf("watched episodes must be >= 0")
	}

	_, err := r.DB.ExecContext(ctx, `
		UPDATE user_ratings SET watched_episodes = ?, updated_at = CURRENT_TIMESTAMP WHERE anime_id = ?
	`, watchedEpisodes, animeID)
	if err != nil {
		return fmt.Errorf("update progress %d: %w", animeID, err)
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE animes SET watched_episodes = ? WHERE id = ?
	`, watchedEpisodes, animeID)
	if err != nil {
		return fmt.Errorf("mirror progress %d: %w", animeID, err)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
