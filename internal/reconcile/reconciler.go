package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/VoidX3D/Anime-Tracker/internal/progress"
	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// ErrRunInProgress is returned when a reconciliation is already running.
// Runs against the same catalog ids are not safe to interleave, so the
// reconciler admits one run at a time.
var ErrRunInProgress = errors.New("reconcile: run already in progress")

// ErrNotCataloged is returned by SetStatus for an id the catalog does not
// contain. A ledger row must never exist without its catalog row, so the
// write is refused instead of half-applied.
var ErrNotCataloged = errors.New("reconcile: id not in catalog")

// Report is the outcome of one reconciliation run. Partial failures never
// abort a run; they surface here as unresolved names and capped diagnostics.
type Report struct {
	RunID      string        `json:"run_id"`
	Updated    int           `json:"updated"`
	Created    int           `json:"created"`
	Unresolved []string      `json:"unresolved"`
	Logs       []string      `json:"logs"`
	Took       time.Duration `json:"took"`
}

// Reconciler merges a list export into the catalog and the status ledger:
// known titles get status updates in bounded concurrent chunks, unknown ids
// are enriched from the provider under a mandatory pacing limiter.
type Reconciler struct {
	cfg      config.Sync
	statuses map[string]models.TrackingStatus
	matcher  *Matcher
	catalog  CatalogStore
	ledger   LedgerStore
	fetcher  Fetcher
	events   EventSink
	oplog    OpLogger
	log      zerolog.Logger

	mu sync.Mutex // single-run guard
}

func New(cfg config.Sync, statuses map[string]models.TrackingStatus, catalog CatalogStore, ledger LedgerStore, fetcher Fetcher, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		statuses: statuses,
		matcher:  NewMatcher(catalog),
		catalog:  catalog,
		ledger:   ledger,
		fetcher:  fetcher,
		log:      log,
	}
}

// WithEvents attaches a progress event sink.
func (r *Reconciler) WithEvents(events EventSink) *Reconciler {
	r.events = events
	return r
}

// WithOpLog attaches an operation log for run summaries.
func (r *Reconciler) WithOpLog(ol OpLogger) *Reconciler {
	r.oplog = ol
	return r
}

type statusUpdate struct {
	id     int
	status models.TrackingStatus
}

type enrichTarget struct {
	id     int
	status models.TrackingStatus
	name   string
}

// Reconcile runs the incremental merge. Unknown categories are skipped,
// unmatched or ambiguous lines become unresolved entries, and a single bad
// line never halts the rest of the file.
func (r *Reconciler) Reconcile(ctx context.Context, file models.ImportFile) (*Report, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	started := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		Unresolved: []string{},
		Logs:       []string{},
	}

	r.publish(progress.RunEvent{Type: progress.EventRunStart, RunID: report.RunID, At: time.Now().UTC()})
	r.log.Info().Str("run_id", report.RunID).Int("items", file.Len()).Msg("reconciliation started")

	updates, targets := r.classify(ctx, file, report)

	if err := r.applyStatusChunks(ctx, updates, report); err != nil {
		return report, err
	}
	if err := r.enrich(ctx, targets, r.cfg.EnrichInterval, report); err != nil {
		return report, err
	}

	report.Took = time.Since(started)
	r.publish(progress.RunEvent{
		Type:    progress.EventRunDone,
		RunID:   report.RunID,
		Updated: report.Updated,
		Created: report.Created,
		At:      time.Now().UTC(),
	})
	r.logRun(ctx, "SMART_SYNC", report)
	r.log.Info().Str("run_id", report.RunID).
		Int("updated", report.Updated).Int("created", report.Created).
		Int("unresolved", len(report.Unresolved)).Dur("took", report.Took).
		Msg("reconciliation finished")

	return report, nil
}

// classify walks the import file once: it maps each category to a tracking
// status, resolves every line, and splits the work into status updates for
// existing rows and enrichment targets for ids the catalog has never seen.
func (r *Reconciler) classify(ctx context.Context, file models.ImportFile, report *Report) ([]statusUpdate, []enrichTarget) {
	var updates []statusUpdate
	var targets []enrichTarget

	for category, items := range file {
		status, ok := r.statuses[category]
		if !ok {
			r.log.Debug().Str("category", category).Int("items", len(items)).
				Msg("skipping unmapped category")
			continue
		}

		for _, item := range items {
			id, err := r.matcher.Resolve(ctx, item)
			if err != nil {
				r.unresolved(report, item.Name, err.Error())
				continue
			}

			found, current, err := r.catalog.StatusByID(ctx, id)
			if err != nil {
				r.unresolved(report, item.Name, fmt.Sprintf("catalog lookup failed: %v", err))
				continue
			}

			switch {
			case !found:
				targets = append(targets, enrichTarget{id: id, status: status, name: item.Name})
			case current == nil || *current != status:
				updates = append(updates, statusUpdate{id: id, status: status})
			default:
				// already at target status, nothing to write
			}
		}
	}

	return dedupeUpdates(updates), targets
}

// dedupeUpdates collapses repeated ids to one write, last wins. Two writes
// for the same id in one chunk run concurrently and could leave catalog and
// ledger disagreeing.
func dedupeUpdates(updates []statusUpdate) []statusUpdate {
	seen := make(map[int]int, len(updates))
	out := updates[:0]
	for _, u := range updates {
		if i, ok := seen[u.id]; ok {
			out[i] = u
			continue
		}
		seen[u.id] = len(out)
		out = append(out, u)
	}
	return out
}

// applyStatusChunks writes status updates in bounded concurrent groups:
// writes inside a chunk run concurrently, chunks run one after another so
// every write of chunk N lands before chunk N+1 starts.
func (r *Reconciler) applyStatusChunks(ctx context.Context, updates []statusUpdate, report *Report) error {
	size := r.cfg.ChunkSize
	if size <= 0 {
		size = 1
	}

	for start := 0; start < len(updates); start += size {
		end := start + size
		if end > len(updates) {
			end = len(updates)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)

		for _, u := range updates[start:end] {
			u := u
			g.Go(func() error {
				if err := r.applyStatus(gctx, u.id, u.status); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					mu.Lock()
					r.unresolved(report, fmt.Sprintf("id %d", u.id), fmt.Sprintf("status write failed: %v", err))
					mu.Unlock()
					return nil
				}
				mu.Lock()
				report.Updated++
				mu.Unlock()
				r.publish(progress.RunEvent{
					Type: progress.EventUpdated, RunID: report.RunID,
					AnimeID: u.id, At: time.Now().UTC(),
				})
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// applyStatus writes one status to both stores. Both writes are idempotent,
// so a rerun after a partial failure converges.
func (r *Reconciler) applyStatus(ctx context.Context, id int, status models.TrackingStatus) error {
	if err := r.catalog.SetTrackingStatus(ctx, id, &status); err != nil {
		return err
	}
	if err := r.ledger.Upsert(ctx, id, status); err != nil {
		return err
	}
	return nil
}

// SetStatus handles a single-title status change from the UI. The reconciler
// owns every tracking-status write, so this lives here rather than in the
// catalog handlers. A nil status clears the title back to untracked and
// drops its ledger row.
func (r *Reconciler) SetStatus(ctx context.Context, id int, status *models.TrackingStatus) error {
	found, _, err := r.catalog.StatusByID(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog lookup %d: %w", id, err)
	}
	if !found {
		return ErrNotCataloged
	}

	if status == nil {
		if err := r.catalog.SetTrackingStatus(ctx, id, nil); err != nil {
			return err
		}
		return r.ledger.Delete(ctx, id)
	}
	return r.applyStatus(ctx, id, *status)
}

// enrich fetches every missing id from the provider, serially and paced by
// the interval, then upserts catalog row and ledger row together. A fetch
// failure records the item and moves on.
func (r *Reconciler) enrich(ctx context.Context, targets []enrichTarget, interval time.Duration, report *Report) error {
	if len(targets) == 0 {
		return nil
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	r.log.Info().Int("targets", len(targets)).Dur("interval", interval).Msg("enrichment started")

	for _, t := range targets {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		anime, err := r.fetcher.FetchByID(ctx, t.id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.unresolved(report, t.name, fmt.Sprintf("enrichment failed for id %d: %v", t.id, err))
			r.publish(progress.RunEvent{
				Type: progress.EventUnresolved, RunID: report.RunID,
				AnimeID: t.id, Name: t.name, At: time.Now().UTC(),
			})
			continue
		}

		anime.UStatus = &t.status
		if err := r.catalog.Upsert(ctx, anime); err != nil {
			r.unresolved(report, t.name, fmt.Sprintf("catalog write failed for id %d: %v", t.id, err))
			continue
		}
		if err := r.ledger.Upsert(ctx, t.id, t.status); err != nil {
			r.unresolved(report, t.name, fmt.Sprintf("ledger write failed for id %d: %v", t.id, err))
			continue
		}

		report.Created++
		r.publish(progress.RunEvent{
			Type: progress.EventEnriched, RunID: report.RunID,
			AnimeID: t.id, Name: anime.TitleRomaji, At: time.Now().UTC(),
		})
	}

	return nil
}

// unresolved records a failed line: the name always, the reason only while
// the diagnostic log has room.
func (r *Reconciler) unresolved(report *Report, name, reason string) {
	report.Unresolved = append(report.Unresolved, name)
	if len(report.Logs) < r.cfg.MaxLogLines {
		report.Logs = append(report.Logs, fmt.Sprintf("%s: %s", name, reason))
	}
	r.log.Warn().Str("item", name).Str("reason", reason).Msg("unresolved import line")
}

func (r *Reconciler) publish(ev progress.RunEvent) {
	if r.events != nil {
		r.events.BroadcastJSON(ev)
	}
}

func (r *Reconciler) logRun(ctx context.Context, eventType string, report *Report) {
	if r.oplog == nil {
		return
	}
	desc := fmt.Sprintf("Sync completed: %d updated, %d created.", report.Updated, report.Created)
	meta := map[string]any{
		"run_id":     report.RunID,
		"updated":    report.Updated,
		"created":    report.Created,
		"unresolved": len(report.Unresolved),
		"logs":       report.Logs,
	}
	if err := r.oplog.Insert(ctx, eventType, desc, meta); err != nil {
		r.log.Warn().Err(err).Msg("oplog write failed")
	}
}
