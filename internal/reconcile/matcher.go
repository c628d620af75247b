package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

// ErrUnmatched means neither an id reference nor a title lookup resolved the
// import line. The line is reported as unresolved, never fails the run.
var ErrUnmatched = errors.New("no catalog match")

// ErrAmbiguous means the title lookup found more than one plausible row.
// Ambiguity is treated as no-match; the matcher never guesses.
var ErrAmbiguous = errors.New("ambiguous title match")

// Matcher resolves an import line to a catalog id: an AniList URL with a
// numeric trailing segment is authoritative, otherwise it falls back to a
// case-insensitive title lookup against the catalog.
type Matcher struct {
	Catalog CatalogStore
}

func NewMatcher(catalog CatalogStore) *Matcher {
	return &Matcher{Catalog: catalog}
}

// Resolve returns the catalog id for item. When the item carries a parsable
// id reference no title lookup happens at all.
func (m *Matcher) Resolve(ctx context.Context, item models.ImportItem) (int, error) {
	if id, ok := ExtractID(item.AL); ok {
		return id, nil
	}

	name := stripQuotes(item.Name)
	if strings.TrimSpace(name) == "" {
		return 0, ErrUnmatched
	}

	ids, err := m.Catalog.FindByTitle(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("title lookup %q: %w", item.Name, err)
	}
	switch len(ids) {
	case 0:
		return 0, ErrUnmatched
	case 1:
		return ids[0], nil
	default:
		return 0, ErrAmbiguous
	}
}

// ExtractID pulls the numeric trailing path segment out of an AniList URL
// ("https://anilist.co/anime/42" or ".../42/"). Extraction is deterministic:
// either the segment is a positive integer or the reference is unusable.
func ExtractID(url string) (int, bool) {
	if url == "" {
		return 0, false
	}
	segs := strings.Split(url, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == "" {
			continue
		}
		id, err := strconv.Atoi(segs[i])
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// stripQuotes removes quote characters that would corrupt the fuzzy lookup.
func stripQuotes(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\'' || r == '"' {
			return -1
		}
		return r
	}, s)
}
