package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// ParityReport is the outcome of a full-parity resync, including the final
// row counts of both stores so drift is visible immediately.
type ParityReport struct {
	RunID       string        `json:"run_id"`
	Applied     int           `json:"applied"`
	Skipped     []string      `json:"skipped"`
	TrackedRows int           `json:"tracked_rows"`
	LedgerRows  int           `json:"ledger_rows"`
	Took        time.Duration `json:"took"`
}

// FullParity performs the destructive resync: it wipes the status ledger and
// re-derives it from the import file using exact-identifier matches only.
// Any tracking status not represented in the file is lost, which is why this
// is a separate, explicitly invoked operation and never the default path.
//
// Lines without a parsable id reference are skipped outright (no fuzzy
// fallback), as are ids the catalog does not contain: a ledger row with no
// catalog row would break the consistency invariant.
func (r *Reconciler) FullParity(ctx context.Context, file models.ImportFile) (*ParityReport, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	started := time.Now()
	report := &ParityReport{
		RunID:   uuid.NewString(),
		Skipped: []string{},
	}

	type target struct {
		id     int
		status models.TrackingStatus
		name   string
	}
	var targets []target

	for category, items := range file {
		status, ok := r.statuses[category]
		if !ok {
			continue
		}
		for _, item := range items {
			id, ok := ExtractID(item.AL)
			if !ok {
				report.Skipped = append(report.Skipped, item.Name)
				continue
			}
			targets = append(targets, target{id: id, status: status, name: item.Name})
		}
	}

	r.log.Info().Str("run_id", report.RunID).Int("targets", len(targets)).
		Msg("full parity resync started, wiping tracked state")

	if err := r.ledger.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("wipe ledger: %w", err)
	}
	if err := r.catalog.ClearAllTracking(ctx); err != nil {
		return nil, fmt.Errorf("clear catalog tracking: %w", err)
	}

	for _, t := range targets {
		found, _, err := r.catalog.StatusByID(ctx, t.id)
		if err != nil {
			report.Skipped = append(report.Skipped, t.name)
			r.log.Warn().Int("id", t.id).Err(err).Msg("parity lookup failed")
			continue
		}
		if !found {
			report.Skipped = append(report.Skipped, t.name)
			continue
		}
		if err := r.applyStatus(ctx, t.id, t.status); err != nil {
			report.Skipped = append(report.Skipped, t.name)
			r.log.Warn().Int("id", t.id).Err(err).Msg("parity write failed")
			continue
		}
		report.Applied++
	}

	tracked, err := r.catalog.CountTracked(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tracked: %w", err)
	}
	ledgerRows, err := r.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}
	report.TrackedRows = tracked
	report.LedgerRows = ledgerRows
	report.Took = time.Since(started)

	if r.oplog != nil {
		desc := fmt.Sprintf("Full parity resync: %d applied, %d skipped.", report.Applied, len(report.Skipped))
		meta := map[string]any{
			"run_id":       report.RunID,
			"applied":      report.Applied,
			"skipped":      len(report.Skipped),
			"tracked_rows": report.TrackedRows,
			"ledger_rows":  report.LedgerRows,
		}
		if err := r.oplog.Insert(ctx, "FULL_PARITY", desc, meta); err != nil {
			r.log.Warn().Err(err).Msg("oplog write failed")
		}
	}

	r.log.Info().Str("run_id", report.RunID).
		Int("applied", report.Applied).Int("tracked_rows", tracked).Int("ledger_rows", ledgerRows).
		Msg("full parity resync finished")

	return report, nil
}
