package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// Config collects every process tunable in one immutable value, built once in
// main and passed explicitly into constructors. Nothing reads it as ambient
// state.
type Config struct {
	DBPath   string
	HTTPAddr string

	Provider Provider
	Sync     Sync
	Suggest  Suggest

	// StatusMap translates export-file category labels into tracking
	// statuses. Categories absent from the map are skipped.
	StatusMap map[string]models.TrackingStatus
}

// Provider holds AniList client settings.
type Provider struct {
	URL               string
	Timeout           time.Duration
	Attempts          int           // total attempts per id, rate limits included
	RateLimitCooldown time.Duration // wait after a 429
	RetryCooldown     time.Duration // wait after a transient failure
}

// Sync holds reconciliation settings.
type Sync struct {
	ChunkSize        int           // concurrent status writes per chunk
	EnrichInterval   time.Duration // pacing between enrichment fetches (incremental)
	BackfillInterval time.Duration // pacing in backfill/parity runs
	MaxLogLines      int           // diagnostic lines kept per report
}

// Suggest holds recommendation scoring constants.
type Suggest struct {
	MinScore          int     // candidate quality floor
	PoolSize          int     // candidate pool cap
	Salt              float64 // upper bound of the random term
	GenreMultiplier   float64
	QualityMultiplier float64
	PopularityDivisor float64
	PanelLimit        int
	PageLimit         int
}

// DefaultStatusMap is the category vocabulary of the list export format.
func DefaultStatusMap() map[string]models.TrackingStatus {
	return map[string]models.TrackingStatus{
		"To watch":  models.StatusToWatch,
		"Planning":  models.StatusPlanning,
		"Watching":  models.StatusWatching,
		"Completed": models.StatusCompleted,
		"On-Hold":   models.StatusOnHold,
		"Dropped":   models.StatusDropped,
	}
}

// Load builds a Config from the environment, falling back to defaults that
// match the hosted AniList API and a local sqlite file.
func Load() Config {
	return Config{
		DBPath:   envStr("ANIMETRACKER_DB_PATH", defaultDBPath()),
		HTTPAddr: envStr("ANIMETRACKER_HTTP_ADDR", ":8080"),
		Provider: Provider{
			URL:               envStr("ANILIST_URL", "https://graphql.anilist.co"),
			Timeout:           envDuration("ANILIST_TIMEOUT", 15*time.Second),
			Attempts:          envInt("ANILIST_ATTEMPTS", 3),
			RateLimitCooldown: envDuration("ANILIST_RATE_COOLDOWN", 60*time.Second),
			RetryCooldown:     envDuration("ANILIST_RETRY_COOLDOWN", 5*time.Second),
		},
		Sync: Sync{
			ChunkSize:        envInt("SYNC_CHUNK_SIZE", 20),
			EnrichInterval:   envDuration("SYNC_ENRICH_INTERVAL", time.Second),
			BackfillInterval: envDuration("SYNC_BACKFILL_INTERVAL", 2*time.Second),
			MaxLogLines:      envInt("SYNC_MAX_LOG_LINES", 50),
		},
		Suggest: Suggest{
			MinScore:          envInt("SUGGEST_MIN_SCORE", 60),
			PoolSize:          envInt("SUGGEST_POOL_SIZE", 300),
			Salt:              200,
			GenreMultiplier:   20,
			QualityMultiplier: 5,
			PopularityDivisor: 200,
			PanelLimit:        10,
			PageLimit:         50,
		},
		StatusMap: DefaultStatusMap(),
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".animetracker", "data.db")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
