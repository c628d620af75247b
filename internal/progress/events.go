package progress

import "time"

// Event types broadcast during a reconciliation run.
const (
	EventRunStart   = "run.start"
	EventRunDone    = "run.done"
	EventEnriched   = "item.enriched"
	EventUpdated    = "item.updated"
	EventUnresolved = "item.unresolved"
)

type RunEvent struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id"`
	AnimeID int       `json:"anime_id,omitempty"`
	Name    string    `json:"name,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Updated int       `json:"updated,omitempty"`
	Created int       `json:"created,omitempty"`
	At      time.Time `json:"at"`
}
