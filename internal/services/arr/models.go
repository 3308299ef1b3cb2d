package arr

// LibraryItem is one title the instance has on disk.
type LibraryItem struct {
	ExternalID     int64 // TMDB id (Radarr) or TVDB id (Sonarr)
	Title          string
	RootFolderPath string
}

// RootFolder is one root folder with its reported free capacity.
type RootFolder struct {
	Path      string
	FreeSpace int64
}

// libraryEntry covers both the Radarr movie and Sonarr series shapes.
// Radarr reports hasFile per movie; Sonarr reports episode file counts in
// statistics.
type libraryEntry struct {
	Title          string `json:"title"`
	TmdbID         int64  `json:"tmdbId"`
	TvdbID         int64  `json:"tvdbId"`
	RootFolderPath string `json:"rootFolderPath"`
	HasFile        bool   `json:"hasFile"`
	Statistics     struct {
		EpisodeFileCount int `json:"episodeFileCount"`
	} `json:"statistics"`
}

func (e *libraryEntry) hasFile() bool {
	return e.HasFile || e.Statistics.EpisodeFileCount > 0
}
