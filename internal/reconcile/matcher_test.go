package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/VoidX3D/Anime-Tracker/pkg/models"
)

func TestExtractID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		id   int
		ok   bool
	}{
		{"plain", "https://anilist.co/anime/42", 42, true},
		{"trailing slash", "https://anilist.co/anime/42/", 42, true},
		{"bare id", "42", 42, true},
		{"empty", "", 0, false},
		{"no id segment", "https://anilist.co/anime/", 0, false},
		{"non-numeric segment", "https://anilist.co/anime/cowboy-bebop", 0, false},
		{"zero id", "https://anilist.co/anime/0", 0, false},
		{"negative id", "https://anilist.co/anime/-7", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ExtractID(tc.url)
			if ok != tc.ok || id != tc.id {
				t.Fatalf("ExtractID(%q) = (%d, %v), want (%d, %v)", tc.url, id, ok, tc.id, tc.ok)
			}
		})
	}
}

func TestResolveIDReferenceSkipsTitleLookup(t *testing.T) {
	completed := models.StatusCompleted
	cat := newFakeCatalog(&models.Anime{ID: 7, TitleEnglish: "Cowboy Bebop", UStatus: &completed})
	m := NewMatcher(cat)

	// the name matches a catalog row, but the URL id must win without a lookup
	id, err := m.Resolve(context.Background(), models.ImportItem{
		Name: "Cowboy Bebop",
		AL:   "https://anilist.co/anime/42",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("Resolve = %d, want 42", id)
	}
	if cat.titleLookups != 0 {
		t.Fatalf("title lookups = %d, want 0", cat.titleLookups)
	}
}

func TestResolveTitleFallback(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 7, TitleEnglish: "Cowboy Bebop"})
	m := NewMatcher(cat)

	id, err := m.Resolve(context.Background(), models.ImportItem{Name: `"Cowboy Bebop"`})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id != 7 {
		t.Fatalf("Resolve = %d, want 7", id)
	}
	if cat.titleLookups != 1 {
		t.Fatalf("title lookups = %d, want 1", cat.titleLookups)
	}
}

func TestResolveUnmatched(t *testing.T) {
	m := NewMatcher(newFakeCatalog())

	if _, err := m.Resolve(context.Background(), models.ImportItem{Name: "Nothing Here"}); !errors.Is(err, ErrUnmatched) {
		t.Fatalf("err = %v, want ErrUnmatched", err)
	}
	if _, err := m.Resolve(context.Background(), models.ImportItem{Name: "  "}); !errors.Is(err, ErrUnmatched) {
		t.Fatalf("blank name err = %v, want ErrUnmatched", err)
	}
}

func TestResolveAmbiguousNeverGuesses(t *testing.T) {
	cat := newFakeCatalog(
		&models.Anime{ID: 1, TitleRomaji: "Monogatari"},
		&models.Anime{ID: 2, TitleEnglish: "Monogatari"},
	)
	m := NewMatcher(cat)

	if _, err := m.Resolve(context.Background(), models.ImportItem{Name: "Monogatari"}); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestResolveBadURLFallsBackToTitle(t *testing.T) {
	cat := newFakeCatalog(&models.Anime{ID: 9, TitleRomaji: "Haikyuu"})
	m := NewMatcher(cat)

	id, err := m.Resolve(context.Background(), models.ImportItem{
		Name: "Haikyuu",
		AL:   "https://anilist.co/anime/not-a-number",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id != 9 {
		t.Fatalf("Resolve = %d, want 9", id)
	}
}
