package engine

import (
	"context"
	"time"

	"github.com/JolanLar/lunager/internal/catalog"
)

// DiscoveryItem is one title the discovery service reports.
type DiscoveryItem struct {
	Kind        catalog.MediaKind
	ExternalID  int64
	PlaybackKey string
	FirstSeen   time.Time
}

// DiscoverySource feeds the discovery pass.
type DiscoverySource interface {
	Media(ctx context.Context) ([]DiscoveryItem, error)
}

// LibraryItem is one on-disk title an acquisition instance reports.
// Entries without a file are not facts and never reach the engine.
type LibraryItem struct {
	ExternalID     int64
	Title          string
	RootFolderPath string
}

// RootFolder is one root folder with its reported free capacity.
type RootFolder struct {
	Path      string
	FreeSpace int64
}

// AcquisitionSource feeds one acquisition pass. An instance is bound to a
// single media kind and quality tier, and to a persisted service-instance
// row that keys its path bindings.
type AcquisitionSource interface {
	Kind() catalog.MediaKind
	Tier() catalog.QualityTier
	InstanceID() int64
	Library(ctx context.Context) ([]LibraryItem, error)
	RootFolders(ctx context.Context) ([]RootFolder, error)
}

// ActivityFact is one observed playback from a watch-activity service.
// PlaybackKey is set when the source knows the playback system's key;
// otherwise only the free-text Name identifies the title.
type ActivityFact struct {
	Kind        catalog.MediaKind
	Name        string
	PlaybackKey string
	LastPlayed  int64
}

// ActivitySource feeds one activity pass.
type ActivitySource interface {
	Name() string
	Activity(ctx context.Context) ([]ActivityFact, error)
}
