package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/VoidX3D/Anime-Tracker/pkg/config"
	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

func testReconciler(cat *fakeCatalog, led *fakeLedger, fetch *fakeFetcher) *Reconciler {
	cfg := config.Sync{
		ChunkSize:      20,
		EnrichInterval: time.Millisecond,
		MaxLogLines:    50,
	}
	return New(cfg, config.DefaultStatusMap(), cat, led, fetch, zerolog.Nop())
}

func alURL(id int) string {
	return fmt.Sprintf("https://anilist.co/anime/%d", id)
}

func TestReconcileEnrichesUnknownID(t *testing.T) {
	cat := newFakeCatalog()
	led := newFakeLedger()
	fetch := newFakeFetcher(&models.Anime{ID: 42, TitleRomaji: "Cowboy Bebop"})
	r := testReconciler(cat, led, fetch)

	file := models.ImportFile{
		"Completed": {{Name: "Cowboy Bebop", AL: alURL(42)}},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Created != 1 || report.Updated != 0 {
		t.Fatalf("report = %d created, %d updated, want 1/0", report.Created, report.Updated)
	}
	if fetch.callCount() != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetch.callCount())
	}
	s := cat.status(42)
	if s == nil || *s != models.StatusCompleted {
		t.Fatalf("catalog status = %v, want COMPLETED", s)
	}
	if got, ok := led.get(42); !ok || got != models.StatusCompleted {
		t.Fatalf("ledger row = (%v, %v), want (COMPLETED, true)", got, ok)
	}
}

func TestReconcileExistingRowUpdatesWithoutFetch(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 42, TitleRomaji: "Cowboy Bebop"})
	led := newFakeLedger()
	fetch := newFakeFetcher()
	r := testReconciler(cat, led, fetch)

	file := models.ImportFile{
		"Watching": {{Name: "Cowboy Bebop", AL: alURL(42)}},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Updated != 1 || report.Created != 0 {
		t.Fatalf("report = %d updated, %d created, want 1/0", report.Updated, report.Created)
	}
	if fetch.callCount() != 0 {
		t.Fatalf("fetch calls = %d, want 0", fetch.callCount())
	}
	s := cat.status(42)
	if s == nil || *s != models.StatusWatching {
		t.Fatalf("catalog status = %v, want WATCHING", s)
	}
	if got, ok := led.get(42); !ok || got != models.StatusWatching {
		t.Fatalf("ledger row = (%v, %v), want (WATCHING, true)", got, ok)
	}
}

func TestReconcileIdempotentSecondRun(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 1, TitleRomaji: "A"}, &models.Anime{ID: 2, TitleRomaji: "B"})
	led := newFakeLedger()
	fetch := newFakeFetcher()
	r := testReconciler(cat, led, fetch)

	file := models.ImportFile{
		"Completed": {{Name: "A", AL: alURL(1)}},
		"Dropped":   {{Name: "B", AL: alURL(2)}},
	}
	if _, err := r.Reconcile(context.Background(), file); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if report.Updated != 0 || report.Created != 0 || len(report.Unresolved) != 0 {
		t.Fatalf("second run = %d updated, %d created, %d unresolved, want all zero",
			report.Updated, report.Created, len(report.Unresolved))
	}
}

func TestReconcileSkipsUnknownCategory(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 1, TitleRomaji: "A"})
	led := newFakeLedger()
	r := testReconciler(cat, led, newFakeFetcher())

	file := models.ImportFile{
		"Rewatching Someday": {{Name: "A", AL: alURL(1)}},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Updated != 0 || report.Created != 0 {
		t.Fatalf("report = %d updated, %d created, want 0/0", report.Updated, report.Created)
	}
	if len(report.Unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none for a skipped category", report.Unresolved)
	}
	if cat.status(1) != nil {
		t.Fatal("catalog row tracked after skipped category")
	}
}

func TestReconcileAmbiguousTitleUnresolved(t *testing.T) {
	cat := newFakeCatalog(
		&models.Anime{ID: 1, TitleRomaji: "Monogatari"},
		&models.Anime{ID: 2, TitleEnglish: "Monogatari"},
	)
	led := newFakeLedger()
	r := testReconciler(cat, led, newFakeFetcher())

	file := models.ImportFile{
		"Completed": {{Name: "Monogatari"}},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if len(report.Unresolved) != 1 || report.Unresolved[0] != "Monogatari" {
		t.Fatalf("unresolved = %v, want [Monogatari]", report.Unresolved)
	}
	if cat.status(1) != nil || cat.status(2) != nil {
		t.Fatal("ambiguous line tracked a catalog row")
	}
	if n, _ := led.Count(context.Background()); n != 0 {
		t.Fatalf("ledger rows = %d, want 0", n)
	}
}

func TestReconcileFetchFailureDoesNotAbortRun(t *testing.T) {
	cat := newFakeCatalog()
	led := newFakeLedger()
	fetch := newFakeFetcher(&models.Anime{ID: 2, TitleRomaji: "B"})
	fetch.failIDs[1] = true
	r := testReconciler(cat, led, fetch)

	file := models.ImportFile{
		"Completed": {
			{Name: "A", AL: alURL(1)},
			{Name: "B", AL: alURL(2)},
		},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Created != 1 {
		t.Fatalf("created = %d, want 1", report.Created)
	}
	if len(report.Unresolved) != 1 || report.Unresolved[0] != "A" {
		t.Fatalf("unresolved = %v, want [A]", report.Unresolved)
	}
	if len(report.Logs) == 0 {
		t.Fatal("expected a diagnostic log line for the failed fetch")
	}
}

func TestReconcileChunkedWritesHitEveryItem(t *testing.T) {
	const n = 45 // spans three chunks of 20

	var entries []*models.Anime
	var items []models.ImportItem
	for i := 1; i <= n; i++ {
		entries = append(entries, &models.Anime{ID: i, TitleRomaji: fmt.Sprintf("Title %d", i)})
		items = append(items, models.ImportItem{Name: fmt.Sprintf("Title %d", i), AL: alURL(i)})
	}
	cat := newFakeCatalog(entries...)
	led := newFakeLedger()
	r := testReconciler(cat, led, newFakeFetcher())

	report, err := r.Reconcile(context.Background(), models.ImportFile{"Watching": items})
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Updated != n {
		t.Fatalf("updated = %d, want %d", report.Updated, n)
	}
	for i := 1; i <= n; i++ {
		s := cat.status(i)
		if s == nil || *s != models.StatusWatching {
			t.Fatalf("id %d status = %v, want WATCHING", i, s)
		}
		if _, ok := led.get(i); !ok {
			t.Fatalf("id %d missing from ledger", i)
		}
	}
	tracked, _ := cat.CountTracked(context.Background())
	ledgerRows, _ := led.Count(context.Background())
	if tracked != ledgerRows {
		t.Fatalf("tracked rows %d != ledger rows %d", tracked, ledgerRows)
	}
}

func TestReconcileSingleRunGuard(t *testing.T) {
	cat := newFakeCatalog()
	led := newFakeLedger()
	fetch := newFakeFetcher(&models.Anime{ID: 1, TitleRomaji: "A"})
	fetch.block = make(chan struct{})
	r := testReconciler(cat, led, fetch)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background(), models.ImportFile{
			"Completed": {{Name: "A", AL: alURL(1)}},
		})
		done <- err
	}()

	// wait until the first run is parked inside the fetcher
	deadline := time.After(2 * time.Second)
	for fetch.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first run never reached the fetcher")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := r.Reconcile(context.Background(), models.ImportFile{}); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("overlapping run err = %v, want ErrRunInProgress", err)
	}

	close(fetch.block)
	if err := <-done; err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
}

func TestSetStatusUnknownIDWritesNothing(t *testing.T) {
	cat := newFakeCatalog()
	led := newFakeLedger()
	r := testReconciler(cat, led, newFakeFetcher())

	completed := models.StatusCompleted
	if err := r.SetStatus(context.Background(), 777, &completed); !errors.Is(err, ErrNotCataloged) {
		t.Fatalf("err = %v, want ErrNotCataloged", err)
	}
	if n, _ := led.Count(context.Background()); n != 0 {
		t.Fatalf("ledger rows = %d, want 0: a ledger row must never exist without its catalog row", n)
	}

	if err := r.SetStatus(context.Background(), 777, nil); !errors.Is(err, ErrNotCataloged) {
		t.Fatalf("clear err = %v, want ErrNotCataloged", err)
	}
}

func TestReconcileDuplicateIDResolvesToOneWrite(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 1, TitleRomaji: "A"})
	led := newFakeLedger()
	r := testReconciler(cat, led, newFakeFetcher())

	// the same title exported under two categories must collapse to a single
	// write, keeping catalog and ledger in agreement
	file := models.ImportFile{
		"Completed": {{Name: "A", AL: alURL(1)}},
		"Dropped":   {{Name: "A", AL: alURL(1)}},
	}
	report, err := r.Reconcile(context.Background(), file)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	if report.Updated != 1 {
		t.Fatalf("updated = %d, want 1", report.Updated)
	}
	s := cat.status(1)
	if s == nil {
		t.Fatal("catalog row untracked after run")
	}
	got, ok := led.get(1)
	if !ok || got != *s {
		t.Fatalf("ledger row = (%v, %v), want it to match catalog status %v", got, ok, *s)
	}
}

func TestSetStatusClearRemovesLedgerRow(t *testing.T) {
	watching := models.StatusWatching
	cat := newFakeCatalog(&models.Anime{ID: 5, TitleRomaji: "A", UStatus: &watching})
	led := newFakeLedger()
	led.Upsert(context.Background(), 5, models.StatusWatching)
	r := testReconciler(cat, led, newFakeFetcher())

	if err := r.SetStatus(context.Background(), 5, nil); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if cat.status(5) != nil {
		t.Fatal("catalog row still tracked after clear")
	}
	if _, ok := led.get(5); ok {
		t.Fatal("ledger row survived the clear")
	}
}

func TestFullParityWipesAndRebuilds(t *testing.T) {
	watching := models.StatusWatching
	completed := models.StatusCompleted
	cat := newFakeCatalog(
		&models.Anime{ID: 1, TitleRomaji: "A", UStatus: &watching},
		&models.Anime{ID: 2, TitleRomaji: "B"},
		&models.Anime{ID: 3, TitleRomaji: "C", UStatus: &completed},
	)
	led := newFakeLedger()
	led.Upsert(context.Background(), 1, models.StatusWatching)
	led.Upsert(context.Background(), 3, models.StatusCompleted)
	r := testReconciler(cat, led, newFakeFetcher())

	file := models.ImportFile{
		"Completed": {{Name: "B", AL: alURL(2)}},
		"Dropped": {
			{Name: "No Reference"},          // no id, no fuzzy fallback
			{Name: "Ghost", AL: alURL(999)}, // id absent from catalog
		},
	}
	report, err := r.FullParity(context.Background(), file)
	if err != nil {
		t.Fatalf("FullParity returned error: %v", err)
	}

	if report.Applied != 1 {
		t.Fatalf("applied = %d, want 1", report.Applied)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %v, want 2 entries", report.Skipped)
	}

	// old tracked state is gone, only the file survives
	if cat.status(1) != nil || cat.status(3) != nil {
		t.Fatal("pre-existing tracking survived the wipe")
	}
	s := cat.status(2)
	if s == nil || *s != models.StatusCompleted {
		t.Fatalf("id 2 status = %v, want COMPLETED", s)
	}
	if got, ok := led.get(2); !ok || got != models.StatusCompleted {
		t.Fatalf("ledger row = (%v, %v), want (COMPLETED, true)", got, ok)
	}
	if report.TrackedRows != 1 || report.LedgerRows != 1 {
		t.Fatalf("final counts = %d tracked, %d ledger, want 1/1", report.TrackedRows, report.LedgerRows)
	}
	if fuzzy := cat.titleLookups; fuzzy != 0 {
		t.Fatalf("title lookups = %d, want 0 during parity", fuzzy)
	}
}
