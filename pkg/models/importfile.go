package models

import (
	"encoding/json"
	"fmt"
	"io"
)

// ImportItem is one line of a list export: a display name plus optional
// provider URLs. Only the AniList URL is used for exact matching; the MAL URL
// is carried for diagnostics.
type ImportItem struct {
	Name string `json:"name"`
	AL   string `json:"al,omitempty"`
	MAL  string `json:"mal,omitempty"`
}

// ImportFile maps a category label ("Completed", "To watch", ...) to the
// items exported under it. Labels outside the configured vocabulary are
// skipped during reconciliation.
type ImportFile map[string][]ImportItem

// ParseImportFile decodes an export file from r.
func ParseImportFile(r io.Reader) (ImportFile, error) {
	var f ImportFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	return f, nil
}

// Len returns the total number of items across all categories.
func (f ImportFile) Len() int {
	n := 0
	for _, items := range f {
		n += len(items)
	}
	return n
}
