package models

import "time"

// LedgerEntry is the denormalized per-title row in user_anime_lists.
// At most one entry exists per anime (upsert key = anime_id); it must agree
// with Anime.UStatus after every successful reconciliation pass.
type LedgerEntry struct {
	AnimeID   int            `json:"anime_id"`
	Status    TrackingStatus `json:"status"`
	Rating    *int           `json:"rating,omitempty"`
	Progress  int            `json:"progress,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}
