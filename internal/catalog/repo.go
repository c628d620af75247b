package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// Repo is the catalog store over the animes table. It is the single source
// of truth for metadata; tracking status lives here as the nullable ustatus
// column and is mirrored into the ledger by the reconciler.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const animeColumns = `
	id, title_romaji, title_english, title_native, description,
	banner_image, cover_image, start_date, end_date, status,
	episodes, duration, genres, average_score, studios,
	source, mal_id, anilist_url, format, season, season_year,
	popularity, favourites, ustatus, user_rating, watched_episodes
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnime(row rowScanner) (*models.Anime, error) {
	var (
		a           models.Anime
		titleNative sql.NullString
		description sql.NullString
		banner      sql.NullString
		cover       sql.NullString
		startDate   sql.NullString
		endDate     sql.NullString
		status      sql.NullString
		episodes    sql.NullInt64
		duration    sql.NullInt64
		genresJSON  string
		avgScore    sql.NullInt64
		studiosJSON string
		source      sql.NullString
		malID       sql.NullInt64
		siteURL     sql.NullString
		format      sql.NullString
		season      sql.NullString
		seasonYear  sql.NullInt64
		ustatus     sql.NullString
		userRating  sql.NullInt64
	)

	err := row.Scan(
		&a.ID, &a.TitleRomaji, &a.TitleEnglish, &titleNative, &description,
		&banner, &cover, &startDate, &endDate, &status,
		&episodes, &duration, &genresJSON, &avgScore, &studiosJSON,
		&source, &malID, &siteURL, &format, &season, &seasonYear,
		&a.Popularity, &a.Favourites, &ustatus, &userRating, &a.WatchedEpisodes,
	)
	if err != nil {
		return nil, err
	}

	if titleNative.Valid {
		a.TitleNative = &titleNative.String
	}
	a.Description = description.String
	if banner.Valid {
		a.BannerImage = &banner.String
	}
	a.CoverImage = cover.String
	if startDate.Valid {
		a.StartDate = &startDate.String
	}
	if endDate.Valid {
		a.EndDate = &endDate.String
	}
	a.Status = status.String
	a.Episodes = int(episodes.Int64)
	a.Duration = int(duration.Int64)
	a.AverageScore = int(avgScore.Int64)
	a.Source = source.String
	if malID.Valid {
		v := int(malID.Int64)
		a.MALID = &v
	}
	a.AniListURL = siteURL.String
	a.Format = format.String
	a.Season = season.String
	a.SeasonYear = int(seasonYear.Int64)
	if ustatus.Valid {
		s := models.TrackingStatus(ustatus.String)
		a.UStatus = &s
	}
	if userRating.Valid {
		v := int(userRating.Int64)
		a.UserRating = &v
	}

	_ = json.Unmarshal([]byte(genresJSON), &a.Genres)
	_ = json.Unmarshal([]byte(studiosJSON), &a.Studios)
	if a.Genres == nil {
		a.Genres = []string{}
	}
	if a.Studios == nil {
		a.Studios = []string{}
	}
	return &a, nil
}

func (r *Repo) GetByID(ctx context.Context, id int) (*models.Anime, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+animeColumns+` FROM animes WHERE id = ?`, id)
	a, err := scanAnime(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return a, nil
}

// StatusByID is the light lookup the reconciler uses on every line: whether
// the id exists at all, and its current tracking status if it does.
func (r *Repo) StatusByID(ctx context.Context, id int) (found bool, status *models.TrackingStatus, err error) {
	var ustatus sql.NullString
	err = r.DB.QueryRowContext(ctx, `SELECT ustatus FROM animes WHERE id = ?`, id).Scan(&ustatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("status by id: %w", err)
	}
	if ustatus.Valid {
		s := models.TrackingStatus(ustatus.String)
		return true, &s, nil
	}
	return true, nil, nil
}

// Upsert inserts or fully replaces the metadata row for a.ID. The tracking
// status is written as given, so enrichment can attach one in the same write.
func (r *Repo) Upsert(ctx context.Context, a *models.Anime) error {
	genresJSON, err := json.Marshal(a.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres for %d: %w", a.ID, err)
	}
	studiosJSON, err := json.Marshal(a.Studios)
	if err != nil {
		return fmt.Errorf("marshal studios for %d: %w", a.ID, err)
	}

	var ustatus any
	if a.UStatus != nil {
		ustatus = string(*a.UStatus)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO animes (
			id, title_romaji, title_english, title_native, description,
			banner_image, cover_image, start_date, end_date, status,
			episodes, duration, genres, average_score, studios,
			source, mal_id, anilist_url, format, season, season_year,
			popularity, favourites, ustatus
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title_romaji = excluded.title_romaji,
			title_english = excluded.title_english,
			title_native = excluded.title_native,
			description = excluded.description,
			banner_image = excluded.banner_image,
			cover_image = excluded.cover_image,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status,
			episodes = excluded.episodes,
			duration = excluded.duration,
			genres = excluded.genres,
			average_score = excluded.average_score,
			studios = excluded.studios,
			source = excluded.source,
			mal_id = excluded.mal_id,
			anilist_url = excluded.anilist_url,
			format = excluded.format,
			season = excluded.season,
			season_year = excluded.season_year,
			popularity = excluded.popularity,
			favourites = excluded.favourites,
			ustatus = excluded.ustatus
	`,
		a.ID, a.TitleRomaji, a.TitleEnglish, a.TitleNative, a.Description,
		a.BannerImage, a.CoverImage, a.StartDate, a.EndDate, a.Status,
		a.Episodes, a.Duration, string(genresJSON), a.AverageScore, string(studiosJSON),
		a.Source, a.MALID, a.AniListURL, a.Format, a.Season, a.SeasonYear,
		a.Popularity, a.Favourites, ustatus,
	)
	if err != nil {
		return fmt.Errorf("upsert anime %d: %w", a.ID, err)
	}
	return nil
}

// SetTrackingStatus updates the ustatus column. A nil status clears it back
// to untracked. Setting the same status twice is a no-op on final state.
func (r *Repo) SetTrackingStatus(ctx context.Context, id int, status *models.TrackingStatus) error {
	var v any
	if status != nil {
		v = string(*status)
	}
	_, err := r.DB.ExecContext(ctx, `UPDATE animes SET ustatus = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("set tracking status %d: %w", id, err)
	}
	return nil
}

// ClearAllTracking sets every row back to untracked. Only the full-parity
// resync calls this, right before re-deriving statuses from the import file.
func (r *Repo) ClearAllTracking(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE animes SET ustatus = NULL WHERE ustatus IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("clear tracking: %w", err)
	}
	return nil
}

// FindByTitle does a case-insensitive equality lookup against both the
// english and romaji titles. All matches come back so the caller can treat
// more than one as ambiguous instead of guessing.
func (r *Repo) FindByTitle(ctx context.Context, title string) ([]int, error) {
	t := strings.ToLower(strings.TrimSpace(title))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM animes
		WHERE LOWER(title_english) = ? OR LOWER(title_romaji) = ?
	`, t, t)
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan title match: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return ids, nil
}

// TrackedIDs returns the ids of every row with a non-null tracking status.
// The recommendation engine treats a failure here as fatal.
func (r *Repo) TrackedIDs(ctx context.Context) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM animes WHERE ustatus IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("tracked ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tracked id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return ids, nil
}

// CountTracked returns how many catalog rows carry a tracking status.
func (r *Repo) CountTracked(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM animes WHERE ustatus IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tracked: %w", err)
	}
	return n, nil
}

// TrackedGenres returns genre tags and status for every tracked row, the raw
// material for the genre affinity profile.
func (r *Repo) TrackedGenres(ctx context.Context) ([]models.TrackedGenres, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT genres, ustatus FROM animes WHERE ustatus IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("tracked genres: %w", err)
	}
	defer rows.Close()

	var out []models.TrackedGenres
	for rows.Next() {
		var genresJSON, status string
		if err := rows.Scan(&genresJSON, &status); err != nil {
			return nil, fmt.Errorf("scan tracked genres: %w", err)
		}
		tg := models.TrackedGenres{Status: models.TrackingStatus(status)}
		_ = json.Unmarshal([]byte(genresJSON), &tg.Genres)
		out = append(out, tg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Candidates returns untracked rows at or above the quality floor, most
// popular first, capped at poolSize.
func (r *Repo) Candidates(ctx context.Context, minScore, poolSize int) ([]models.Anime, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+animeColumns+` FROM animes
		WHERE ustatus IS NULL AND average_score >= ?
		ORDER BY popularity DESC
		LIMIT ?
	`, minScore, poolSize)
	if err != nil {
		return nil, fmt.Errorf("candidates query: %w", err)
	}
	defer rows.Close()

	var out []models.Anime
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
