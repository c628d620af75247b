package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

type ListQuery struct {
	Q      string   // keyword search in titles
	Genres []string // any-match
	Format string
	Season string
	Status string // tracking status filter, or "untracked"
	Sort   string // "popularity" (default), "score", "title"
	Limit  int
	Offset int
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Anime, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Anime, 0, q.Limit)
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list. The genre filter is
// any-match via LIKE against the stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + animeColumns + ` FROM animes`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM animes`
	}

	var where []string
	var args []any

	if s := strings.TrimSpace(q.Q); s != "" {
		where = append(where, "(LOWER(title_english) LIKE ? OR LOWER(title_romaji) LIKE ?)")
		kw := "%" + strings.ToLower(s) + "%"
		args = append(args, kw, kw)
	}

	if s := strings.TrimSpace(q.Format); s != "" {
		where = append(where, "UPPER(format) = ?")
		args = append(args, strings.ToUpper(s))
	}

	if s := strings.TrimSpace(q.Season); s != "" {
		where = append(where, "UPPER(season) = ?")
		args = append(args, strings.ToUpper(s))
	}

	switch s := strings.TrimSpace(q.Status); {
	case s == "":
	case strings.EqualFold(s, "untracked"):
		where = append(where, "ustatus IS NULL")
	default:
		where = append(where, "ustatus = ?")
		args = append(args, strings.ToUpper(s))
	}

	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			genreOr = append(genreOr, "LOWER(genres) LIKE ?")
			args = append(args, `%`+strings.ToLower(g)+`%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		switch q.Sort {
		case "score":
			sqlStr += " ORDER BY average_score DESC"
		case "title":
			sqlStr += " ORDER BY title_english ASC"
		default:
			sqlStr += " ORDER BY popularity DESC"
		}
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
