package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Put(context.Background(), Track{
		Title:      "Sandstorm",
		Artist:     "Darude",
		DurationMs: 230000,
		Album:      "Before the Storm",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, ok, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Sandstorm", got.Title)
	require.Equal(t, "Darude", got.Artist)
	require.Equal(t, "Before the Storm", got.Album)
}

func TestGetMissingTrack(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteIsSoftAndTrackIDNeverReused(t *testing.T) {
	s := openTestStore(t)
	id1, err := s.Put(context.Background(), Track{Title: "A", Artist: "X", DurationMs: 1000})
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), id1))

	_, ok, err := s.Get(context.Background(), id1)
	require.NoError(t, err)
	require.False(t, ok, "a deleted track must not be returned by Get")

	id2, err := s.Put(context.Background(), Track{Title: "B", Artist: "Y", DurationMs: 2000})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestIterateSkipsDeleted(t *testing.T) {
	s := openTestStore(t)
	keep, err := s.Put(context.Background(), Track{Title: "Keep", Artist: "A", DurationMs: 1})
	require.NoError(t, err)
	gone, err := s.Put(context.Background(), Track{Title: "Gone", Artist: "B", DurationMs: 1})
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), gone))

	var seen []uint64
	require.NoError(t, s.Iterate(context.Background(), func(tr Track) bool {
		seen = append(seen, tr.TrackID)
		return true
	}))
	require.Contains(t, seen, keep)
	require.NotContains(t, seen, gone)
}
