package overseerr

import (
	"time"

	"github.com/JolanLar/lunager/internal/catalog"
)

// MediaItem is one discovered title.
type MediaItem struct {
	Kind        catalog.MediaKind
	ExternalID  int64 // TMDB id for movies, TVDB id for series
	PlaybackKey string
	FirstSeen   time.Time
}

// ArrSettings is one Radarr/Sonarr connection as Overseerr knows it.
type ArrSettings struct {
	Name   string
	URL    string
	APIKey string
	Is4K   bool
}

type mediaResponse struct {
	Results []mediaResult `json:"results"`
}

type mediaResult struct {
	MediaType   string `json:"mediaType"`
	TmdbID      int64  `json:"tmdbId"`
	TvdbID      int64  `json:"tvdbId"`
	RatingKey   string `json:"ratingKey"`
	RatingKey4K string `json:"ratingKey4k"`
	CreatedAt   string `json:"createdAt"`
}

type arrSettingsResponse struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ExternalURL string `json:"externalUrl"`
	APIKey      string `json:"apiKey"`
	Is4K        bool   `json:"is4k"`
}
