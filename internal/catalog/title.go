// Package catalog holds the canonical media records and the rules for
// combining per-source observations into them.
package catalog

import (
	"math"
	"strings"
	"time"
)

// MediaKind distinguishes the two catalog domains. Movies are keyed by
// TMDB id, series by TVDB id; everything else about them is identical.
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// Kinds lists all media kinds in a stable order.
var Kinds = []MediaKind{KindMovie, KindSeries}

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// QualityTier identifies which acquisition tier produced a file path.
// The two tiers are tracked as independent fields on a title so that
// syncing one tier never disturbs the other.
type QualityTier string

const (
	TierHD QualityTier = "hd"
	Tier4K QualityTier = "4k"
)

// LastViewNever marks a title that has no observed playback at all. It is
// deliberately below every real timestamp (including 0) so that untouched
// titles always fall under any retention threshold.
const LastViewNever = math.MinInt64

// Title is the canonical record for one movie or series. ExternalID is the
// only stable identity; Name follows whatever the most recent source
// reported and must never be used to overwrite identity.
type Title struct {
	Kind        MediaKind `json:"kind"`
	ExternalID  int64     `json:"externalId"`
	Name        string    `json:"name"`
	PathHD      string    `json:"pathHd,omitempty"`
	Path4K      string    `json:"path4k,omitempty"`
	PlaybackKey string    `json:"playbackKey,omitempty"`
	LastView    int64     `json:"lastView"`
	Protected   bool      `json:"protected"`
	AddedAt     time.Time `json:"addedAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Viewed reports whether any playback has ever been observed.
func (t *Title) Viewed() bool {
	return t.LastView != LastViewNever
}

// NormalizeName trims and lowercases a title name for matching. Activity
// sources report free-text names, so matching is deliberately forgiving
// about case and surrounding whitespace and nothing else.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
