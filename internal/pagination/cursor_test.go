package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := Encode(0.731, 42)
	c, err := Decode(s)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 0.731, c.Score)
	assert.Equal(t, int64(42), c.ID)
}

func TestDecodeEmptyReturnsNil(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"not-base64!!", "bm9waXBl", "MC41"} {
		_, err := Decode(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestAfterOrdering(t *testing.T) {
	c := &Cursor{Score: 0.5, ID: 10}

	assert.True(t, c.After(0.6, 1), "higher score sorts after")
	assert.True(t, c.After(0.5, 11), "same score, higher id sorts after")
	assert.False(t, c.After(0.5, 10), "cursor position itself is excluded")
	assert.False(t, c.After(0.4, 99), "lower score sorts before")

	var nilCursor *Cursor
	assert.True(t, nilCursor.After(0, 0), "nil cursor admits everything")
}

func TestComputePage(t *testing.T) {
	type row struct {
		score float64
		id    int64
	}
	items := []row{{0.1, 1}, {0.2, 2}, {0.3, 3}}

	// Fetched limit+1: has more.
	page, next, more := ComputePage(items, 2, func(r row) (float64, int64) { return r.score, r.id })
	require.Len(t, page, 2)
	assert.True(t, more)
	c, err := Decode(next)
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.Score)
	assert.Equal(t, int64(2), c.ID)

	// Exactly limit: no more.
	page, next, more = ComputePage(items, 3, func(r row) (float64, int64) { return r.score, r.id })
	assert.Len(t, page, 3)
	assert.False(t, more)
	assert.Empty(t, next)
}
