package fingerprint

import (
	"testing"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/peaks"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []struct{ fa, fb, dt int }{
		{0, 0, 0},
		{1023, 1023, 4095},
		{512, 3, 17},
		{7, 900, 4000},
	}
	for _, c := range cases {
		h := Pack(c.fa, c.fb, c.dt)
		fa, fb, dt := Unpack(h)
		require.Equal(t, c.fa, fa)
		require.Equal(t, c.fb, fb)
		require.Equal(t, c.dt, dt)
	}
}

func TestPackFieldsFitBits(t *testing.T) {
	h := Pack(1023, 1023, 4095)
	if uint64(h)>>32 != 0 {
		t.Fatalf("Pack overflowed 32 bits: %#x", h)
	}
}

func TestHashesDeterministic(t *testing.T) {
	cfg := config.Default()
	pks := []peaks.Peak{
		{T: 0, F: 10, Mag: 1},
		{T: 2, F: 20, Mag: 1},
		{T: 5, F: 15, Mag: 1},
	}
	a := Hashes(pks, cfg)
	b := Hashes(pks, cfg)
	require.Equal(t, a, b)
	if len(a) == 0 {
		t.Fatal("expected at least one hash from three peaks within target-zone range")
	}
}

func TestHashesAnchoredAtEarlierPeak(t *testing.T) {
	cfg := config.Default()
	cfg.DeltaMin, cfg.DeltaMax, cfg.K, cfg.FFan = 1, 5, 5, 1000
	pks := []peaks.Peak{
		{T: 0, F: 10, Mag: 1},
		{T: 3, F: 12, Mag: 1},
	}
	hashes := Hashes(pks, cfg)
	require.Len(t, hashes, 1)
	require.Equal(t, 0, hashes[0].TA)
	_, _, dt := Unpack(hashes[0].H)
	require.Equal(t, 3, dt)
}

// TestQuantizeFreqSpansFullRawRange checks that the low and high ends of a
// realistic bin range (cfg.W = 4096 puts raw bins up to ~2046) map to the
// low and high ends of the packed hash's 10-bit field, and that raw bins
// exactly freqMask+1 apart (which used to alias under a plain bitmask) end
// up quantized to different values.
func TestQuantizeFreqSpansFullRawRange(t *testing.T) {
	maxBin := maxRawBin(config.Default())
	require.Equal(t, 0, quantizeFreq(0, maxBin))
	require.Equal(t, freqMask, quantizeFreq(maxBin, maxBin))
	require.NotEqual(t, quantizeFreq(5, maxBin), quantizeFreq(5+freqMask+1, maxBin))
}

// TestHashesDistinguishesDistantPeaksAtDefaultConfig reproduces the
// aliasing scenario a raw bitmask would hit at the recommended default
// cfg.W = 4096: two anchor peaks 1024 raw bins apart (well beyond what
// fits in the 10-bit field) must not collapse to the same packed
// frequency field.
func TestHashesDistinguishesDistantPeaksAtDefaultConfig(t *testing.T) {
	cfg := config.Default()
	pksNear := []peaks.Peak{
		{T: 0, F: 5, Mag: 1},
		{T: 3, F: 6, Mag: 1},
	}
	pksFar := []peaks.Peak{
		{T: 0, F: 5 + freqMask + 1, Mag: 1},
		{T: 3, F: 6 + freqMask + 1, Mag: 1},
	}
	hNear := Hashes(pksNear, cfg)
	hFar := Hashes(pksFar, cfg)
	require.NotEmpty(t, hNear)
	require.NotEmpty(t, hFar)
	require.NotEqual(t, hNear[0].H, hFar[0].H, "peaks 1024 raw bins apart must not alias to the same packed hash")
}
