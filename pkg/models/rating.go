package models

import "time"

// Rating is the user's rating record for one title (user_ratings table).
type Rating struct {
	AnimeID         int       `json:"anime_id"`
	Rating          int       `json:"rating"` // 0..10
	Review          string    `json:"review,omitempty"`
	WatchedEpisodes int       `json:"watched_episodes"`
	IsRewatching    bool      `json:"is_rewatching"`
	StartedAt       *string   `json:"started_at,omitempty"`   // YYYY-MM-DD
	CompletedAt     *string   `json:"completed_at,omitempty"` // YYYY-MM-DD
	UpdatedAt       time.Time `json:"updated_at"`
}
