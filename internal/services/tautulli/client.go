// Package tautulli reads watch history from a Tautulli server.
package tautulli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/config"
)

var ErrAPIError = errors.New("tautulli API error")

// historyPageSize bounds one get_history request. The whole history is
// fetched in a single page; Tautulli has no cursor worth paginating for
// libraries this size.
const historyPageSize = 500000

// HistoryEntry is one watched title. Movie plays carry the movie's own
// rating key; episode plays are rolled up to their series, so Name and
// PlaybackKey refer to the series.
type HistoryEntry struct {
	Kind        catalog.MediaKind
	Name        string
	PlaybackKey string
	LastPlayed  int64
}

// Client is a Tautulli API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	name       string
	logger     zerolog.Logger
}

// NewClient creates a new Tautulli client.
func NewClient(cfg config.EndpointConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		name:       cfg.Name,
		logger: logger.With().
			Str("component", "tautulli").
			Str("instance", cfg.Name).
			Logger(),
	}
}

// Name returns the configured instance name.
func (c *Client) Name() string {
	if c.name != "" {
		return c.name
	}
	return "tautulli"
}

// History returns the watch history, one entry per play.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("cmd", "get_history")
	params.Set("length", fmt.Sprintf("%d", historyPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v2?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Msg("Tautulli API error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}
	if response.Response.Result != "success" {
		return nil, fmt.Errorf("%w: %s", ErrAPIError, response.Response.Message)
	}

	var entries []HistoryEntry
	for _, row := range response.Response.Data.Data {
		lastPlayed := row.Stopped
		if lastPlayed == 0 {
			lastPlayed = row.Date
		}
		if lastPlayed == 0 {
			continue
		}

		switch row.MediaType {
		case "movie":
			entries = append(entries, HistoryEntry{
				Kind:        catalog.KindMovie,
				Name:        row.Title,
				PlaybackKey: row.RatingKey.String(),
				LastPlayed:  lastPlayed,
			})
		case "episode":
			entries = append(entries, HistoryEntry{
				Kind:        catalog.KindSeries,
				Name:        row.GrandparentTitle,
				PlaybackKey: row.GrandparentRatingKey.String(),
				LastPlayed:  lastPlayed,
			})
		}
	}
	return entries, nil
}
