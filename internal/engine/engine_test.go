package engine

import (
	"context"
	"math"
	"testing"

	"github.com/paraswtf/fftrack/internal/catalog"
	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/index"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.NMin = 3

	idx, err := index.Open("", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	return New(cfg, idx, cat)
}

// syntheticTrack builds a multi-tone signal with a changing frequency
// mixture over time, so its spectrogram has real time-varying structure
// for the peak picker to key on, unlike a single fixed tone.
func syntheticTrack(seconds float64, fs int) []float64 {
	n := int(seconds * float64(fs))
	out := make([]float64, n)
	tones := []float64{440, 880, 1320, 660}
	for i := range out {
		tSec := float64(i) / float64(fs)
		tone := tones[int(tSec*4)%len(tones)]
		out[i] = math.Sin(2 * math.Pi * tone * tSec)
	}
	return out
}

func TestIngestThenIdentifyFindsExactClip(t *testing.T) {
	e := newTestEngine(t)
	samples := syntheticTrack(6, e.cfg.Fs)

	trackID, err := e.Ingest(context.Background(), AudioSource{
		Samples:    samples,
		SampleRate: e.cfg.Fs,
		Channels:   1,
	}, Meta{Title: "Test Track", Artist: "Tester"})
	require.NoError(t, err)
	require.NotZero(t, trackID)

	res, err := e.Identify(context.Background(), AudioSource{
		Samples:    samples,
		SampleRate: e.cfg.Fs,
		Channels:   1,
	})
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, trackID, res.Candidates[0].TrackID)
}

func TestIdentifyNoMatchAgainstEmptyIndex(t *testing.T) {
	e := newTestEngine(t)
	samples := syntheticTrack(4, e.cfg.Fs)

	res, err := e.Identify(context.Background(), AudioSource{
		Samples:    samples,
		SampleRate: e.cfg.Fs,
		Channels:   1,
	})
	require.NoError(t, err)
	require.False(t, res.Matched)
}

func TestDeleteTrackRemovesFromCatalogAndIndex(t *testing.T) {
	e := newTestEngine(t)
	samples := syntheticTrack(5, e.cfg.Fs)

	trackID, err := e.Ingest(context.Background(), AudioSource{
		Samples:    samples,
		SampleRate: e.cfg.Fs,
		Channels:   1,
	}, Meta{Title: "Doomed", Artist: "Tester"})
	require.NoError(t, err)

	require.NoError(t, e.DeleteTrack(context.Background(), trackID))

	_, ok, err := e.CatalogTrack(context.Background(), trackID)
	require.NoError(t, err)
	require.False(t, ok)

	res, err := e.Identify(context.Background(), AudioSource{
		Samples:    samples,
		SampleRate: e.cfg.Fs,
		Channels:   1,
	})
	require.NoError(t, err)
	require.False(t, res.Matched)
}
