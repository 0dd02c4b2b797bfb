package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(original))
	require.NoError(t, err)
	require.True(t, parsed.CreatedAt.Equal(original.CreatedAt))
	require.Equal(t, original.ID, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("!!!")
	require.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 7, NormalizeLimit(7))
}

func TestBuildPageTrimsLookahead(t *testing.T) {
	now := time.Now().UTC()
	rows := []Cursor{
		{CreatedAt: now, ID: uuid.New()},
		{CreatedAt: now.Add(-time.Minute), ID: uuid.New()},
		{CreatedAt: now.Add(-2 * time.Minute), ID: uuid.New()},
	}
	page := BuildPage(rows, 2, func(c Cursor) Cursor { return c })
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, rows[1].ID, next.ID)

	last := BuildPage(rows[:1], 2, func(c Cursor) Cursor { return c })
	require.Empty(t, last.NextCursor)

	none := BuildPage[Cursor](nil, 2, func(c Cursor) Cursor { return c })
	require.NotNil(t, none.Items)
}
