package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// mediaQuery is the single-item lookup. The field set is exactly what the
// catalog stores; nothing else from the provider schema is consumed.
const mediaQuery = `
    query ($id: Int) {
      Media(id: $id, type: ANIME) {
        id
        idMal
        title { romaji english native }
        description
        bannerImage
        coverImage { extraLarge large medium }
        startDate { year month day }
        endDate { year month day }
        status
        episodes
        duration
        genres
        averageScore
        studios { nodes { name } }
        source
        siteUrl
        format
        season
        seasonYear
        popularity
        favourites
      }
    }
`

// Client issues single-item lookups against the AniList GraphQL API.
// It owns rate-limit handling: a 429 suspends the calling flow for the
// configured cooldown and retries, a transient failure retries after a
// shorter one, both against a shared attempt budget.
type Client struct {
	http     *http.Client
	url      string
	attempts int
	rateWait time.Duration
	failWait time.Duration
	log      zerolog.Logger
}

func NewClient(cfg config.Provider, log zerolog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		url:      cfg.URL,
		attempts: cfg.Attempts,
		rateWait: cfg.RateLimitCooldown,
		failWait: cfg.RetryCooldown,
		log:      log,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Media *media `json:"Media"`
	} `json:"data"`
}

type media struct {
	ID    int  `json:"id"`
	IDMal *int `json:"idMal"`
	Title struct {
		Romaji  string  `json:"romaji"`
		English *string `json:"english"`
		Native  *string `json:"native"`
	} `json:"title"`
	Description string  `json:"description"`
	BannerImage *string `json:"bannerImage"`
	CoverImage  struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Medium     string `json:"medium"`
	} `json:"coverImage"`
	StartDate    fuzzyDate `json:"startDate"`
	EndDate      fuzzyDate `json:"endDate"`
	Status       string    `json:"status"`
	Episodes     int       `json:"episodes"`
	Duration     int       `json:"duration"`
	Genres       []string  `json:"genres"`
	AverageScore int       `json:"averageScore"`
	Studios      *struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
	Source     string `json:"source"`
	SiteURL    string `json:"siteUrl"`
	Format     string `json:"format"`
	Season     string `json:"season"`
	SeasonYear int    `json:"seasonYear"`
	Popularity int    `json:"popularity"`
	Favourites int    `json:"favourites"`
}

type fuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// FetchByID looks up one title. It returns ErrNotFound when the provider has
// no media for the id, ErrRateLimited when the budget was spent on 429s, and
// a *ProviderError for anything else. All failures are skippable: one bad id
// must never abort a batch.
func (c *Client) FetchByID(ctx context.Context, id int) (*models.Anime, error) {
	var lastErr error

	for attempt := 0; attempt < c.attempts; attempt++ {
		m, err := c.fetchOnce(ctx, id)
		switch {
		case err == nil:
			if m == nil {
				return nil, ErrNotFound
			}
			return m.toAnime(), nil
		case err == errRateLimited:
			lastErr = ErrRateLimited
			if attempt+1 == c.attempts {
				break // budget spent, no point cooling down
			}
			c.log.Warn().Int("id", id).Int("attempt", attempt+1).
				Dur("cooldown", c.rateWait).Msg("anilist rate limited, cooling down")
			if err := sleep(ctx, c.rateWait); err != nil {
				return nil, err
			}
		default:
			lastErr = &ProviderError{ID: id, Err: err}
			if attempt+1 == c.attempts {
				break
			}
			c.log.Warn().Int("id", id).Int("attempt", attempt+1).Err(err).
				Msg("anilist fetch failed, retrying")
			if err := sleep(ctx, c.failWait); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// errRateLimited is internal; FetchByID translates it to ErrRateLimited once
// the budget runs out.
var errRateLimited = errors.New("http 429")

// fetchOnce performs one request. A nil media with nil error means the
// provider answered and had nothing.
func (c *Client) fetchOnce(ctx context.Context, id int) (*media, error) {
	body, err := json.Marshal(gqlRequest{
		Query:     mediaQuery,
		Variables: map[string]any{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}

	var out gqlResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode (status %d): %w", resp.StatusCode, err)
	}
	// the provider answers not-found as a 404 with a null media; any other
	// non-ok status with no media is a server-side failure worth retrying
	if out.Data.Media == nil && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return out.Data.Media, nil
}

// toAnime normalizes the provider payload into the catalog shape. Optional
// nested structures are defended here so the rest of the app never sees nil
// slices or half-filled dates.
func (m *media) toAnime() *models.Anime {
	a := &models.Anime{
		ID:           m.ID,
		TitleRomaji:  m.Title.Romaji,
		TitleEnglish: m.Title.Romaji,
		TitleNative:  m.Title.Native,
		Description:  m.Description,
		BannerImage:  m.BannerImage,
		CoverImage:   pickCover(m.CoverImage.ExtraLarge, m.CoverImage.Large, m.CoverImage.Medium),
		StartDate:    m.StartDate.format(),
		EndDate:      m.EndDate.format(),
		Status:       m.Status,
		Episodes:     m.Episodes,
		Duration:     m.Duration,
		Genres:       m.Genres,
		AverageScore: m.AverageScore,
		Studios:      []string{},
		Source:       m.Source,
		MALID:        m.IDMal,
		AniListURL:   m.SiteURL,
		Format:       m.Format,
		Season:       m.Season,
		SeasonYear:   m.SeasonYear,
		Popularity:   m.Popularity,
		Favourites:   m.Favourites,
	}

	if m.Title.English != nil && *m.Title.English != "" {
		a.TitleEnglish = *m.Title.English
	}
	if a.Genres == nil {
		a.Genres = []string{}
	}
	if m.Studios != nil {
		for _, n := range m.Studios.Nodes {
			if n.Name != "" {
				a.Studios = append(a.Studios, n.Name)
			}
		}
	}
	return a
}

// format renders a provider fuzzy date as YYYY-MM-DD. No year means the date
// is unknown; missing month or day default to 1.
func (d fuzzyDate) format() *string {
	if d.Year == 0 {
		return nil
	}
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	s := fmt.Sprintf("%04d-%02d-%02d", d.Year, month, day)
	return &s
}

// pickCover falls through the image variants highest resolution first.
func pickCover(variants ...string) string {
	for _, v := range variants {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
