// Package pagination provides cursor-based pagination utilities.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Cursor represents a position in a result set ordered by (score, id).
type Cursor struct {
	Score float64
	ID    int64
}

// Encode returns an opaque cursor string from a score and record ID.
func Encode(score float64, id int64) string {
	raw := fmt.Sprintf("%s|%d", strconv.FormatFloat(score, 'g', -1, 64), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string. Returns nil for empty input.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor")
	}
	score, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	return &Cursor{Score: score, ID: id}, nil
}

// After reports whether a record at (score, id) sorts strictly after the
// cursor position in ascending (score, id) order.
func (c *Cursor) After(score float64, id int64) bool {
	if c == nil {
		return true
	}
	if score != c.Score {
		return score > c.Score
	}
	return id > c.ID
}

// ComputePage takes a slice of items (fetched with limit+1), the requested
// limit, and a function to extract (score, id) from the last item. Returns
// the trimmed items, next cursor, and has_more flag.
func ComputePage[T any](items []T, limit int, extractKey func(T) (float64, int64)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	last := items[len(items)-1]
	score, id := extractKey(last)
	return items, Encode(score, id), true
}
