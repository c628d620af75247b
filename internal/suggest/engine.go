package suggest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// CatalogStore is the read-only slice of the catalog the engine needs.
// Implemented by catalog.Repo.
type CatalogStore interface {
	TrackedIDs(ctx context.Context) ([]int, error)
	TrackedGenres(ctx context.Context) ([]models.TrackedGenres, error)
	Candidates(ctx context.Context, minScore, poolSize int) ([]models.Anime, error)
}

// Scored is a catalog entry plus its computed ranking weight.
type Scored struct {
	models.Anime
	Weight float64 `json:"weight"`
}

// Engine ranks unwatched catalog entries. Scoring mixes a genre affinity
// profile derived from the user's completed and queued titles with quality
// and popularity, plus a random salt so repeated calls vary. The random
// source is injected so tests can pin it.
type Engine struct {
	cfg     config.Suggest
	catalog CatalogStore
	rng     *rand.Rand
	rngMu   sync.Mutex // rand.Rand is not safe for concurrent use
	log     zerolog.Logger
}

func NewEngine(cfg config.Suggest, catalog CatalogStore, rng *rand.Rand, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, catalog: catalog, rng: rng, log: log}
}

// Recommend returns the top limit candidates by weight. An empty candidate
// pool yields an empty slice; a failure to load the exclusion set fails the
// whole operation, because without it tracked titles could leak into the
// results.
func (e *Engine) Recommend(ctx context.Context, limit int) ([]Scored, error) {
	if limit <= 0 {
		limit = e.cfg.PanelLimit
	}

	excludedIDs, err := e.catalog.TrackedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusion set: %w", err)
	}
	excluded := make(map[int]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	affinity, err := e.affinityProfile(ctx)
	if err != nil {
		return nil, err
	}

	pool, err := e.catalog.Candidates(ctx, e.cfg.MinScore, e.cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	scored := make([]Scored, 0, len(pool))
	e.rngMu.Lock()
	for _, a := range pool {
		if _, ok := excluded[a.ID]; ok {
			continue
		}
		scored = append(scored, Scored{Anime: a, Weight: e.weight(a, affinity)})
	}
	e.rngMu.Unlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Weight > scored[j].Weight })

	if len(scored) > limit {
		scored = scored[:limit]
	}
	e.log.Debug().Int("pool", len(pool)).Int("excluded", len(excluded)).
		Int("returned", len(scored)).Msg("recommendations computed")
	return scored, nil
}

// affinityProfile counts genre tags across entries whose status carries a
// positive signal: finished titles and the to-watch queue.
func (e *Engine) affinityProfile(ctx context.Context) (map[string]int, error) {
	tracked, err := e.catalog.TrackedGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("load affinity genres: %w", err)
	}

	affinity := make(map[string]int)
	for _, tg := range tracked {
		if tg.Status != models.StatusCompleted && tg.Status != models.StatusToWatch {
			continue
		}
		for _, g := range tg.Genres {
			affinity[g]++
		}
	}
	return affinity, nil
}

func (e *Engine) weight(a models.Anime, affinity map[string]int) float64 {
	w := e.rng.Float64() * e.cfg.Salt
	for _, g := range a.Genres {
		w += float64(affinity[g]) * e.cfg.GenreMultiplier
	}
	w += float64(a.AverageScore) * e.cfg.QualityMultiplier
	w += float64(a.Popularity) / e.cfg.PopularityDivisor
	return w
}
