package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// fakeCatalog is an in-memory CatalogStore that counts title lookups so
// tests can assert the exact-id path never touches the fuzzy fallback.
type fakeCatalog struct {
	mu           sync.Mutex
	entries      map[int]*models.Anime
	titleLookups int
	failStatus   bool
}

func newFakeCatalog(entries ...*models.Anime) *fakeCatalog {
	f := &fakeCatalog{entries: make(map[int]*models.Anime)}
	for _, a := range entries {
		cp := *a
		f.entries[a.ID] = &cp
	}
	return f
}

func (f *fakeCatalog) StatusByID(ctx context.Context, id int) (bool, *models.TrackingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatus {
		return false, nil, errors.New("store down")
	}
	a, ok := f.entries[id]
	if !ok {
		return false, nil, nil
	}
	if a.UStatus == nil {
		return true, nil, nil
	}
	s := *a.UStatus
	return true, &s, nil
}

func (f *fakeCatalog) FindByTitle(ctx context.Context, title string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleLookups++
	t := strings.ToLower(strings.TrimSpace(title))
	var ids []int
	for id, a := range f.entries {
		if strings.ToLower(a.TitleEnglish) == t || strings.ToLower(a.TitleRomaji) == t {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeCatalog) Upsert(ctx context.Context, a *models.Anime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.entries[a.ID] = &cp
	return nil
}

func (f *fakeCatalog) SetTrackingStatus(ctx context.Context, id int, status *models.TrackingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.entries[id]
	if !ok {
		return nil // UPDATE on a missing row affects nothing
	}
	if status == nil {
		a.UStatus = nil
		return nil
	}
	s := *status
	a.UStatus = &s
	return nil
}

func (f *fakeCatalog) ClearAllTracking(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.entries {
		a.UStatus = nil
	}
	return nil
}

func (f *fakeCatalog) CountTracked(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.entries {
		if a.UStatus != nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeCatalog) status(id int) *models.TrackingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.entries[id]; ok {
		return a.UStatus
	}
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[int]models.TrackingStatus
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[int]models.TrackingStatus)}
}

func (f *fakeLedger) Upsert(ctx context.Context, animeID int, status models.TrackingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[animeID] = status
	return nil
}

func (f *fakeLedger) Delete(ctx context.Context, animeID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, animeID)
	return nil
}

func (f *fakeLedger) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[int]models.TrackingStatus)
	return nil
}

func (f *fakeLedger) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeLedger) get(animeID int) (models.TrackingStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[animeID]
	return s, ok
}

// fakeFetcher serves canned provider records and can fail selected ids.
type fakeFetcher struct {
	mu      sync.Mutex
	media   map[int]*models.Anime
	failIDs map[int]bool
	calls   int
	block   chan struct{} // when set, FetchByID waits until closed
}

func newFakeFetcher(media ...*models.Anime) *fakeFetcher {
	f := &fakeFetcher{media: make(map[int]*models.Anime), failIDs: make(map[int]bool)}
	for _, a := range media {
		cp := *a
		f.media[a.ID] = &cp
	}
	return f
}

func (f *fakeFetcher) FetchByID(ctx context.Context, id int) (*models.Anime, error) {
	f.mu.Lock()
	block := f.block
	f.calls++
	fail := f.failIDs[id]
	a, ok := f.media[id]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("provider exploded")
	}
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
