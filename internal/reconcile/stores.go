package reconcile

import (
	"context"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// CatalogStore is the slice of the catalog the reconciler needs. Implemented
// by catalog.Repo; tests substitute an in-memory fake.
type CatalogStore interface {
	StatusByID(ctx context.Context, id int) (found bool, status *models.TrackingStatus, err error)
	FindByTitle(ctx context.Context, title string) ([]int, error)
	Upsert(ctx context.Context, a *models.Anime) error
	SetTrackingStatus(ctx context.Context, id int, status *models.TrackingStatus) error
	ClearAllTracking(ctx context.Context) error
	CountTracked(ctx context.Context) (int, error)
}

// LedgerStore is the slice of the status ledger the reconciler needs.
type LedgerStore interface {
	Upsert(ctx context.Context, animeID int, status models.TrackingStatus) error
	Delete(ctx context.Context, animeID int) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Fetcher is the external metadata lookup. Implemented by anilist.Client.
type Fetcher interface {
	FetchByID(ctx context.Context, id int) (*models.Anime, error)
}

// EventSink receives per-run progress events. Implemented by progress.Hub;
// nil disables publishing.
type EventSink interface {
	BroadcastJSON(v any)
}

// OpLogger records the run summary. Implemented by oplog.Repo; nil disables.
type OpLogger interface {
	Insert(ctx context.Context, eventType, description string, meta any) error
}
