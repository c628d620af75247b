package models

// Anime is one catalog entry, enriched from AniList. The column layout in the
// animes table mirrors this struct one to one.
//
// Nullable provider fields use pointers so "unknown" survives a round trip
// through the store instead of collapsing to a zero value.
type Anime struct {
	ID           int       `json:"id"` // AniList id, primary key
	TitleRomaji  string    `json:"title_romaji"`
	TitleEnglish string    `json:"title_english"`
	TitleNative  *string   `json:"title_native,omitempty"`
	Description  string    `json:"description,omitempty"`
	BannerImage  *string   `json:"banner_image,omitempty"`
	CoverImage   string    `json:"cover_image,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      *string   `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status       string    `json:"status,omitempty"`     // provider lifecycle: RELEASING, FINISHED, ...
	Episodes     int       `json:"episodes,omitempty"`
	Duration     int       `json:"duration,omitempty"` // minutes per episode
	Genres       []string  `json:"genres"`
	AverageScore int       `json:"average_score,omitempty"`
	Studios      []string  `json:"studios"`
	Source       string    `json:"source,omitempty"` // MANGA, ORIGINAL, LIGHT_NOVEL, ...
	MALID        *int      `json:"mal_id,omitempty"`
	AniListURL   string    `json:"anilist_url,omitempty"`
	Format       string    `json:"format,omitempty"` // TV, MOVIE, OVA, ...
	Season       string    `json:"season,omitempty"` // WINTER, SPRING, SUMMER, FALL
	SeasonYear   int       `json:"season_year,omitempty"`
	Popularity   int       `json:"popularity"`
	Favourites   int       `json:"favourites,omitempty"`

	// UStatus is the user's tracking status, nil when untracked.
	UStatus *TrackingStatus `json:"ustatus,omitempty"`

	// Mirrored from user_ratings so list views render without a join.
	UserRating      *int `json:"user_rating,omitempty"`
	WatchedEpisodes int  `json:"watched_episodes,omitempty"`
}

// TrackedGenres pairs a tracked row's genre tags with its status, the input
// shape for the genre affinity profile.
type TrackedGenres struct {
	Status TrackingStatus
	Genres []string
}

// TrackingStatus is the closed vocabulary of user tracking states.
type TrackingStatus string

const (
	StatusToWatch   TrackingStatus = "TO_WATCH"
	StatusPlanning  TrackingStatus = "PLANNING"
	StatusWatching  TrackingStatus = "WATCHING"
	StatusCompleted TrackingStatus = "COMPLETED"
	StatusOnHold    TrackingStatus = "ON_HOLD"
	StatusDropped   TrackingStatus = "DROPPED"
)

// Valid reports whether s is one of the known tracking states.
func (s TrackingStatus) Valid() bool {
	switch s {
	case StatusToWatch, StatusPlanning, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped:
		return true
	}
	return false
}
