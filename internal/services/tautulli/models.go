package tautulli

import (
	"encoding/json"
	"strings"
)

// ratingKey tolerates both the string and number encodings Tautulli uses
// for rating keys across versions.
type ratingKey string

func (r *ratingKey) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*r = ratingKey(s)
	return nil
}

func (r ratingKey) String() string {
	return string(r)
}

type historyResponse struct {
	Response struct {
		Result  string `json:"result"`
		Message string `json:"message"`
		Data    struct {
			Data []historyRow `json:"data"`
		} `json:"data"`
	} `json:"response"`
}

type historyRow struct {
	MediaType            string    `json:"media_type"`
	Title                string    `json:"title"`
	GrandparentTitle     string    `json:"grandparent_title"`
	RatingKey            ratingKey `json:"rating_key"`
	GrandparentRatingKey ratingKey `json:"grandparent_rating_key"`
	Stopped              int64     `json:"stopped"`
	Date                 int64     `json:"date"`
}

var _ json.Unmarshaler = (*ratingKey)(nil)
