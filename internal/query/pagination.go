package query

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cursor carries opaque pagination state across HTTP requests for the
// same query.
type Cursor struct {
	QueryHash string    `json:"q"`
	Offset    int       `json:"o"`
	CreatedAt time.Time `json:"t"`
}

const cursorTTL = 10 * time.Minute

// EncodeCursor creates an opaque cursor string for the next page.
func EncodeCursor(queryHash string, offset int, now time.Time) string {
	data, _ := json.Marshal(Cursor{QueryHash: queryHash, Offset: offset, CreatedAt: now})
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses and validates a cursor string, rejecting ones
// older than cursorTTL.
func DecodeCursor(s string, now time.Time) (*Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding")
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor format")
	}
	if now.Sub(cursor.CreatedAt) > cursorTTL {
		return nil, fmt.Errorf("cursor expired")
	}
	return &cursor, nil
}

// Page is a windowed slice of search Hits with enough state to fetch
// the next page.
type Page struct {
	Hits       []Hit  `json:"hits"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
	Cursor     string `json:"cursor,omitempty"`
}

// Paginate windows hits to [offset, offset+limit), deterministically
// hashing queryHash into the returned cursor so a client can't replay
// a cursor against a different query.
func Paginate(hits []Hit, offset, limit int, queryHash string, now time.Time) Page {
	total := len(hits)
	if offset >= total {
		return Page{Hits: []Hit{}, TotalCount: total}
	}
	hits = hits[offset:]

	hasMore := len(hits) > limit
	if hasMore {
		hits = hits[:limit]
	}

	var cursor string
	if hasMore {
		cursor = EncodeCursor(queryHash, offset+limit, now)
	}
	return Page{Hits: hits, TotalCount: total, HasMore: hasMore, Cursor: cursor}
}

// HashQuery produces a short deterministic fingerprint for a query's
// parameters, used to bind a cursor to the query that produced it.
func HashQuery(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%x", h[:8])
}
