package matcher

import (
	"context"
	"testing"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/fingerprint"
	"github.com/paraswtf/fftrack/internal/index"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T, cfg config.Config) *index.BadgerIndex {
	t.Helper()
	idx, err := index.Open("", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// TestSelfMatch checks that a query built from a track's own hashes at
// offset zero matches that track with the winning delta at zero.
func TestSelfMatch(t *testing.T) {
	cfg := config.Default()
	cfg.NMin = 3
	idx := openTestIndex(t, cfg)

	hashes := []fingerprint.Hash{
		{H: fingerprint.Pack(1, 2, 3), TA: 0},
		{H: fingerprint.Pack(4, 5, 6), TA: 10},
		{H: fingerprint.Pack(7, 8, 9), TA: 20},
	}
	require.NoError(t, idx.InsertTrack(context.Background(), 1, hashes))

	res, err := Match(context.Background(), idx, hashes, cfg)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, uint64(1), res.Candidates[0].TrackID)
	require.Equal(t, 0, res.Candidates[0].Delta)
}

// TestOffsetRecovery checks that a query offset by a constant number of
// frames from the indexed track recovers that same constant as the
// winning delta.
func TestOffsetRecovery(t *testing.T) {
	cfg := config.Default()
	cfg.NMin = 3
	idx := openTestIndex(t, cfg)

	const shift = 37
	indexed := []fingerprint.Hash{
		{H: fingerprint.Pack(1, 2, 3), TA: 100},
		{H: fingerprint.Pack(4, 5, 6), TA: 110},
		{H: fingerprint.Pack(7, 8, 9), TA: 120},
	}
	require.NoError(t, idx.InsertTrack(context.Background(), 2, indexed))

	query := make([]fingerprint.Hash, len(indexed))
	for i, h := range indexed {
		query[i] = fingerprint.Hash{H: h.H, TA: h.TA - shift}
	}

	res, err := Match(context.Background(), idx, query, cfg)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, shift, res.Candidates[0].Delta)
}

// TestNoMatchOnSilence checks that hashes appearing nowhere in the index
// yield NoMatch, not an error.
func TestNoMatchOnSilence(t *testing.T) {
	cfg := config.Default()
	idx := openTestIndex(t, cfg)

	query := []fingerprint.Hash{{H: fingerprint.Pack(1, 1, 1), TA: 0}}
	res, err := Match(context.Background(), idx, query, cfg)
	require.NoError(t, err)
	require.False(t, res.Matched)
	require.Empty(t, res.Candidates)
}

func TestTieBreakBySmallerTrackID(t *testing.T) {
	cfg := config.Default()
	idx := openTestIndex(t, cfg)

	h := fingerprint.Pack(1, 1, 1)
	require.NoError(t, idx.InsertTrack(context.Background(), 5, []fingerprint.Hash{{H: h, TA: 0}}))
	require.NoError(t, idx.InsertTrack(context.Background(), 3, []fingerprint.Hash{{H: h, TA: 0}}))

	res, err := Match(context.Background(), idx, []fingerprint.Hash{{H: h, TA: 0}}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	require.Equal(t, uint64(3), res.Candidates[0].TrackID, "equal scores must tie-break to the smaller track_id")
}

func TestBelowNMinDoesNotMatch(t *testing.T) {
	cfg := config.Default()
	cfg.NMin = 100
	idx := openTestIndex(t, cfg)

	hashes := []fingerprint.Hash{{H: fingerprint.Pack(1, 2, 3), TA: 0}}
	require.NoError(t, idx.InsertTrack(context.Background(), 1, hashes))

	res, err := Match(context.Background(), idx, hashes, cfg)
	require.NoError(t, err)
	require.False(t, res.Matched)
}

func TestTopN(t *testing.T) {
	res := Result{Candidates: []Candidate{{TrackID: 1}, {TrackID: 2}, {TrackID: 3}}}
	require.Len(t, TopN(res, 2), 2)
	require.Len(t, TopN(res, 0), 3)
	require.Len(t, TopN(res, 10), 3)
}
