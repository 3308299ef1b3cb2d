// Package jellyfin reads playback activity from a Jellyfin server through
// the Playback Reporting plugin's custom-query endpoint.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/config"
)

var ErrAPIError = errors.New("jellyfin API error")

// ActivityEntry is one observed playback: a free-text item name and the
// last time it was played, as unix seconds.
type ActivityEntry struct {
	Name       string
	LastPlayed int64
}

// Client is a Jellyfin playback-activity client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	name       string
	logger     zerolog.Logger
}

// NewClient creates a new Jellyfin client.
func NewClient(cfg config.EndpointConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.APIKey,
		name:       cfg.Name,
		logger: logger.With().
			Str("component", "jellyfin").
			Str("instance", cfg.Name).
			Logger(),
	}
}

// Name returns the configured instance name.
func (c *Client) Name() string {
	if c.name != "" {
		return c.name
	}
	return "jellyfin"
}

// Playback Reporting stores episode plays as "Series - Episode"; movie
// plays have no separator. The two queries split on that convention.
const (
	movieActivityQuery = `SELECT ItemName, MAX(strftime('%%s', DateCreated)) lastView ` +
		`FROM PlaybackActivity ` +
		`WHERE DateCreated > DATE('now', '-%d MONTH') AND INSTR(ItemName, ' - ') = 0 ` +
		`GROUP BY ItemName`

	seriesActivityQuery = `SELECT SUBSTR(ItemName, 0, INSTR(ItemName, ' - ')) SeriesName, MAX(strftime('%%s', DateCreated)) lastView ` +
		`FROM PlaybackActivity ` +
		`WHERE DateCreated > DATE('now', '-%d MONTH') AND INSTR(ItemName, ' - ') > 0 ` +
		`GROUP BY SeriesName`
)

// MovieActivity returns per-movie last-played times within the lookback
// window.
func (c *Client) MovieActivity(ctx context.Context, lookbackMonths int) ([]ActivityEntry, error) {
	return c.customQuery(ctx, fmt.Sprintf(movieActivityQuery, lookbackMonths))
}

// SeriesActivity returns per-series last-played times within the lookback
// window.
func (c *Client) SeriesActivity(ctx context.Context, lookbackMonths int) ([]ActivityEntry, error) {
	return c.customQuery(ctx, fmt.Sprintf(seriesActivityQuery, lookbackMonths))
}

func (c *Client) customQuery(ctx context.Context, query string) ([]ActivityEntry, error) {
	payload, err := json.Marshal(map[string]string{"CustomQueryString": query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/user_usage_stats/submit_custom_query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Emby-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Msg("Jellyfin API error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Results [][]any `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	var entries []ActivityEntry
	for _, row := range response.Results {
		if len(row) < 2 || row[0] == nil || row[1] == nil {
			continue
		}
		name, ok := row[0].(string)
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		lastPlayed, ok := timestampValue(row[1])
		if !ok {
			c.logger.Debug().Str("name", name).Msg("Skipping activity row with unparsable timestamp")
			continue
		}
		entries = append(entries, ActivityEntry{Name: name, LastPlayed: lastPlayed})
	}
	return entries, nil
}

// timestampValue accepts the two shapes the plugin returns timestamps in:
// a numeric string or a JSON number.
func timestampValue(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}
