package startup

import (
	"context"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/engine"
	"github.com/JolanLar/lunager/internal/services/arr"
	"github.com/JolanLar/lunager/internal/services/jellyfin"
	"github.com/JolanLar/lunager/internal/services/overseerr"
	"github.com/JolanLar/lunager/internal/services/tautulli"
)

// discoverySource adapts the Overseerr client to the engine's discovery
// pass.
type discoverySource struct {
	client *overseerr.Client
}

func (s discoverySource) Media(ctx context.Context) ([]engine.DiscoveryItem, error) {
	media, err := s.client.Media(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]engine.DiscoveryItem, len(media))
	for i, m := range media {
		items[i] = engine.DiscoveryItem{
			Kind:        m.Kind,
			ExternalID:  m.ExternalID,
			PlaybackKey: m.PlaybackKey,
			FirstSeen:   m.FirstSeen,
		}
	}
	return items, nil
}

// acquisitionSource adapts an arr client to the engine's acquisition pass.
type acquisitionSource struct {
	client *arr.Client
}

func (s acquisitionSource) Kind() catalog.MediaKind   { return s.client.Kind() }
func (s acquisitionSource) Tier() catalog.QualityTier { return s.client.Tier() }
func (s acquisitionSource) InstanceID() int64         { return s.client.InstanceID() }

func (s acquisitionSource) Library(ctx context.Context) ([]engine.LibraryItem, error) {
	library, err := s.client.Library(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]engine.LibraryItem, len(library))
	for i, l := range library {
		items[i] = engine.LibraryItem{
			ExternalID:     l.ExternalID,
			Title:          l.Title,
			RootFolderPath: l.RootFolderPath,
		}
	}
	return items, nil
}

func (s acquisitionSource) RootFolders(ctx context.Context) ([]engine.RootFolder, error) {
	folders, err := s.client.RootFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]engine.RootFolder, len(folders))
	for i, f := range folders {
		out[i] = engine.RootFolder{Path: f.Path, FreeSpace: f.FreeSpace}
	}
	return out, nil
}

// jellyfinSource adapts a Jellyfin client to the engine's activity pass,
// combining the movie and series queries into one batch.
type jellyfinSource struct {
	client         *jellyfin.Client
	lookbackMonths int
}

func (s jellyfinSource) Name() string { return s.client.Name() }

func (s jellyfinSource) Activity(ctx context.Context) ([]engine.ActivityFact, error) {
	movies, err := s.client.MovieActivity(ctx, s.lookbackMonths)
	if err != nil {
		return nil, err
	}
	series, err := s.client.SeriesActivity(ctx, s.lookbackMonths)
	if err != nil {
		return nil, err
	}

	facts := make([]engine.ActivityFact, 0, len(movies)+len(series))
	for _, m := range movies {
		facts = append(facts, engine.ActivityFact{
			Kind:       catalog.KindMovie,
			Name:       m.Name,
			LastPlayed: m.LastPlayed,
		})
	}
	for _, e := range series {
		facts = append(facts, engine.ActivityFact{
			Kind:       catalog.KindSeries,
			Name:       e.Name,
			LastPlayed: e.LastPlayed,
		})
	}
	return facts, nil
}

// tautulliSource adapts a Tautulli client to the engine's activity pass.
type tautulliSource struct {
	client *tautulli.Client
}

func (s tautulliSource) Name() string { return s.client.Name() }

func (s tautulliSource) Activity(ctx context.Context) ([]engine.ActivityFact, error) {
	history, err := s.client.History(ctx)
	if err != nil {
		return nil, err
	}
	facts := make([]engine.ActivityFact, len(history))
	for i, h := range history {
		facts[i] = engine.ActivityFact{
			Kind:        h.Kind,
			Name:        h.Name,
			PlaybackKey: h.PlaybackKey,
			LastPlayed:  h.LastPlayed,
		}
	}
	return facts, nil
}
