// Package overseerr talks to the request-discovery service. It supplies
// the catalog with newly requested titles and the set of Radarr/Sonarr
// instances to sync from.
package overseerr

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
	"github.com/JolanLar/lunager/internal/config"
)

var (
	ErrNotConfigured = errors.New("overseerr URL is not configured")
	ErrAPIError      = errors.New("overseerr API error")
)

// mediaPageSize bounds one Media listing request. The whole library fits
// in a single page at this size.
const mediaPageSize = 5000

// Client is an Overseerr API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient creates a new Overseerr client.
func NewClient(cfg config.OverseerrConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger.With().Str("component", "overseerr").Logger(),
	}
}

// IsConfigured returns true if a URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Media lists the known titles. Entries that have no rating key in either
// tier are not in the playback system yet and are skipped; their creation
// date seeds last-view so a requested-but-never-watched title ages from
// the day it appeared.
func (c *Client) Media(ctx context.Context) ([]MediaItem, error) {
	data, err := c.doRequest(ctx, fmt.Sprintf("/api/v1/media?take=%d", mediaPageSize))
	if err != nil {
		return nil, err
	}

	var response mediaResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse media response: %w", err)
	}

	var items []MediaItem
	for _, m := range response.Results {
		if m.RatingKey == "" && m.RatingKey4K == "" {
			continue
		}

		item := MediaItem{PlaybackKey: m.RatingKey}
		if item.PlaybackKey == "" {
			item.PlaybackKey = m.RatingKey4K
		}

		switch m.MediaType {
		case "movie":
			item.Kind = catalog.KindMovie
			item.ExternalID = m.TmdbID
		case "tv":
			item.Kind = catalog.KindSeries
			item.ExternalID = m.TvdbID
		default:
			continue
		}
		if item.ExternalID == 0 {
			continue
		}

		firstSeen, err := time.Parse(time.RFC3339, m.CreatedAt)
		if err != nil {
			c.logger.Warn().
				Str("createdAt", m.CreatedAt).
				Int64("externalId", item.ExternalID).
				Msg("Skipping media entry with unparsable creation date")
			continue
		}
		item.FirstSeen = firstSeen

		items = append(items, item)
	}

	return items, nil
}

// Radarrs returns the configured Radarr instances.
func (c *Client) Radarrs(ctx context.Context) ([]ArrSettings, error) {
	return c.arrSettings(ctx, "/api/v1/settings/radarr")
}

// Sonarrs returns the configured Sonarr instances.
func (c *Client) Sonarrs(ctx context.Context) ([]ArrSettings, error) {
	return c.arrSettings(ctx, "/api/v1/settings/sonarr")
}

func (c *Client) arrSettings(ctx context.Context, path string) ([]ArrSettings, error) {
	data, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var settings []arrSettingsResponse
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings response: %w", err)
	}

	instances := make([]ArrSettings, 0, len(settings))
	for _, s := range settings {
		url := s.ExternalURL
		if url == "" {
			url = s.URL
		}
		if url == "" || s.APIKey == "" {
			c.logger.Warn().Str("name", s.Name).Msg("Skipping instance without URL or API key")
			continue
		}
		instances = append(instances, ArrSettings{
			Name:   s.Name,
			URL:    strings.TrimRight(url, "/"),
			APIKey: s.APIKey,
			Is4K:   s.Is4K,
		})
	}
	return instances, nil
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

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
			Msg("Overseerr API error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}
