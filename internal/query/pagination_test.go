package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	encoded := EncodeCursor("abc123", 10, now)
	assert.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "abc123", decoded.QueryHash)
	assert.Equal(t, 10, decoded.Offset)
}

func TestDecodeCursor_RejectsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	encoded := EncodeCursor("abc123", 10, now)

	_, err := DecodeCursor(encoded, now.Add(11*time.Minute))
	assert.ErrorContains(t, err, "expired")
}

func TestDecodeCursor_RejectsInvalidEncoding(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!!", time.Now())
	assert.ErrorContains(t, err, "invalid cursor")
}

func TestPaginate_WindowsAndCarriesCursor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hits := make([]Hit, 25)
	for i := range hits {
		hits[i] = Hit{Path: "file.py", Score: float64(i)}
	}

	page1 := Paginate(hits, 0, 10, "hash123", now)
	assert.Len(t, page1.Hits, 10)
	assert.Equal(t, 25, page1.TotalCount)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.Cursor)

	cursor, err := DecodeCursor(page1.Cursor, now)
	require.NoError(t, err)
	assert.Equal(t, 10, cursor.Offset)

	page3 := Paginate(hits, 20, 10, "hash123", now)
	assert.Len(t, page3.Hits, 5)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.Cursor)
}
