package index

import (
	"context"
	"testing"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
	"github.com/paraswtf/fftrack/internal/fingerprint"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T, cfg config.Config) *BadgerIndex {
	t.Helper()
	idx, err := Open("", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestInsertAndLookupRoundTrip(t *testing.T) {
	cfg := config.Default()
	idx := openTestIndex(t, cfg)

	hashes := []fingerprint.Hash{
		{H: fingerprint.Pack(1, 2, 3), TA: 100},
		{H: fingerprint.Pack(4, 5, 6), TA: 200},
	}
	require.NoError(t, idx.InsertTrack(context.Background(), 7, hashes))

	postings, err := idx.Lookup(context.Background(), hashes[0].H)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, uint64(7), postings[0].TrackID)
	require.Equal(t, 100, postings[0].AnchorT)
}

func TestSchemaMismatchBeforeAnyPayloadIO(t *testing.T) {
	// An index opened once under one Fs, then reopened with a different
	// Fs, must reject the mismatch before any lookup succeeds.
	dir := t.TempDir()
	cfg1 := config.Default()
	idx1, err := Open(dir, cfg1)
	require.NoError(t, err)
	require.NoError(t, idx1.Close())

	cfg2 := cfg1
	cfg2.Fs = cfg1.Fs + 1
	_, err = Open(dir, cfg2)
	require.Error(t, err)
	require.True(t, fftrackerr.Is(err, fftrackerr.SchemaMismatch))
}

func TestDeleteTrackHidesPostings(t *testing.T) {
	cfg := config.Default()
	idx := openTestIndex(t, cfg)

	h := fingerprint.Hash{H: fingerprint.Pack(9, 9, 9), TA: 1}
	require.NoError(t, idx.InsertTrack(context.Background(), 42, []fingerprint.Hash{h}))
	require.NoError(t, idx.DeleteTrack(context.Background(), 42))

	postings, err := idx.Lookup(context.Background(), h.H)
	require.NoError(t, err)
	require.Empty(t, postings)
}

func TestCancelledIngestLeavesNoPostings(t *testing.T) {
	// An ingest whose context is already cancelled must fail with
	// Cancelled and leave none of its postings visible; Badger's
	// single-transaction write makes any ingest all-or-nothing.
	cfg := config.Default()
	idx := openTestIndex(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hashes := []fingerprint.Hash{
		{H: fingerprint.Pack(1, 1, 1), TA: 0},
		{H: fingerprint.Pack(2, 2, 2), TA: 1},
	}
	err := idx.InsertTrack(ctx, 5, hashes)
	require.Error(t, err)
	require.True(t, fftrackerr.Is(err, fftrackerr.Cancelled))

	for _, h := range hashes {
		postings, lookupErr := idx.Lookup(context.Background(), h.H)
		require.NoError(t, lookupErr)
		require.Empty(t, postings)
	}
}

func TestHotHashSkippedAbovePMax(t *testing.T) {
	cfg := config.Default()
	cfg.PMax = 2
	idx := openTestIndex(t, cfg)

	h := fingerprint.Pack(3, 3, 3)
	for trackID := uint64(0); trackID < 4; trackID++ {
		hash := fingerprint.Hash{H: h, TA: int(trackID)}
		require.NoError(t, idx.InsertTrack(context.Background(), trackID, []fingerprint.Hash{hash}))
	}

	postings, err := idx.Lookup(context.Background(), h)
	require.NoError(t, err)
	require.Nil(t, postings, "expected the hot hash to be skipped once posting count exceeds P_max")
}
