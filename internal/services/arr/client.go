// Package arr talks to a single Radarr or Sonarr instance. Each instance
// belongs to one quality tier; its library entries only ever touch that
// tier's path on a title.
package arr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/storage"
)

var ErrAPIError = errors.New("arr API error")

// Client is a Radarr or Sonarr API client.
type Client struct {
	httpClient *http.Client
	instance   storage.Instance
	logger     zerolog.Logger
}

// NewClient creates a client for one service instance.
func NewClient(inst storage.Instance, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		instance:   inst,
		logger: logger.With().
			Str("component", string(inst.Kind)).
			Str("instance", inst.Name).
			Str("tier", string(inst.Tier)).
			Logger(),
	}
}

// Kind returns the catalog domain this instance feeds.
func (c *Client) Kind() catalog.MediaKind {
	return c.instance.Kind.MediaKind()
}

// Tier returns the quality tier this instance acquires.
func (c *Client) Tier() catalog.QualityTier {
	return c.instance.Tier
}

// InstanceID returns the persisted service-instance row id.
func (c *Client) InstanceID() int64 {
	return c.instance.ID
}

// Test verifies connectivity and that the remote is the expected
// application.
func (c *Client) Test(ctx context.Context) error {
	data, err := c.doRequest(ctx, "/api/v3/system/status")
	if err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}

	var status struct {
		AppName string `json:"appName"`
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("failed to parse status response: %w", err)
	}

	expected := "Radarr"
	if c.instance.Kind == storage.InstanceSonarr {
		expected = "Sonarr"
	}
	if !strings.EqualFold(status.AppName, expected) {
		return fmt.Errorf("expected %s but connected to %s", expected, status.AppName)
	}
	return nil
}

// Library lists the instance's titles. Entries without a file on disk are
// not acquisition facts and are dropped here, as are entries missing the
// external catalog id.
func (c *Client) Library(ctx context.Context) ([]LibraryItem, error) {
	path := "/api/v3/movie"
	if c.instance.Kind == storage.InstanceSonarr {
		path = "/api/v3/series"
	}

	data, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var entries []libraryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse library response: %w", err)
	}

	var items []LibraryItem
	for _, e := range entries {
		externalID := e.TmdbID
		if c.instance.Kind == storage.InstanceSonarr {
			externalID = e.TvdbID
		}
		if externalID == 0 || !e.hasFile() {
			continue
		}
		items = append(items, LibraryItem{
			ExternalID:     externalID,
			Title:          e.Title,
			RootFolderPath: e.RootFolderPath,
		})
	}
	return items, nil
}

// RootFolders returns the instance's root folders with their reported free
// capacity.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	data, err := c.doRequest(ctx, "/api/v3/rootfolder")
	if err != nil {
		return nil, err
	}

	var apiFolders []struct {
		Path      string `json:"path"`
		FreeSpace int64  `json:"freeSpace"`
	}
	if err := json.Unmarshal(data, &apiFolders); err != nil {
		return nil, fmt.Errorf("failed to parse root folders: %w", err)
	}

	folders := make([]RootFolder, len(apiFolders))
	for i, f := range apiFolders {
		folders[i] = RootFolder{Path: f.Path, FreeSpace: f.FreeSpace}
	}
	return folders, nil
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.instance.URL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.instance.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Arr API error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}
