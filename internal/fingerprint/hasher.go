// Package fingerprint implements the hasher: combining pairs of
// constellation peaks into fixed-width fingerprint hashes anchored at
// the earlier peak's frame.
package fingerprint

import (
	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/peaks"
)

const (
	freqBits  = 10
	deltaBits = 12

	freqMask  = 1<<freqBits - 1
	deltaMask = 1<<deltaBits - 1
)

// Hash is one fingerprint hash paired with its anchor frame.
type Hash struct {
	H  uint32
	TA int
}

// Pack combines an anchor frequency bin, a target frequency bin and their
// frame delta into a 32-bit fingerprint hash: fa(10) | fb(10) | dt(12).
// Injective within the bit width of each field: Unpack(Pack(x)) == x for
// every x whose fields fit their bits.
// Callers must already have fa/fb quantized into [0, freqMask]; Pack does
// not itself narrow a raw spectrogram bin index into 10 bits (see
// quantizeFreq, used by Hashes).
func Pack(fa, fb, dt int) uint32 {
	return uint32(fa&freqMask)<<22 | uint32(fb&freqMask)<<12 | uint32(dt&deltaMask)
}

// Unpack is the inverse of Pack.
func Unpack(h uint32) (fa, fb, dt int) {
	fa = int((h >> 22) & freqMask)
	fb = int((h >> 12) & freqMask)
	dt = int(h & deltaMask)
	return
}

// Hashes pairs each anchor peak with up to cfg.K target peaks in the
// target zone and emits one Pack-ed hash per pair, in the
// order the anchors appear (peaks is assumed sorted by (t, f), as Pick
// guarantees). Duplicate hashes across different anchor pairs are
// permitted; the index absorbs the multiplicity.
func Hashes(pks []peaks.Peak, cfg config.Config) []Hash {
	byFrame := groupByFrame(pks)
	frames := sortedFrames(byFrame)
	maxBin := maxRawBin(cfg)

	var out []Hash
	for _, t := range frames {
		anchors := byFrame[t]
		for _, a := range anchors {
			made := 0
			for dt := cfg.DeltaMin; dt <= cfg.DeltaMax && made < cfg.K; dt++ {
				targets, ok := byFrame[t+dt]
				if !ok {
					continue
				}
				for _, b := range targets {
					if abs(b.F-a.F) > cfg.FFan {
						continue
					}
					fa := quantizeFreq(a.F, maxBin)
					fb := quantizeFreq(b.F, maxBin)
					out = append(out, Hash{H: Pack(fa, fb, dt), TA: a.T})
					made++
					if made >= cfg.K {
						break
					}
				}
			}
		}
	}
	return out
}

// maxRawBin is the highest spectrogram bin index Spectrogram/Plan.Transform
// can produce for this configuration's window size (Spectrum has length
// W/2, indices 0..W/2-1).
func maxRawBin(cfg config.Config) int {
	m := cfg.W/2 - 1
	if m < 1 {
		m = 1
	}
	return m
}

// quantizeFreq maps a raw spectrogram bin in [0, maxBin] onto the packed
// hash's 10-bit frequency field [0, freqMask], rounding to the nearest
// bucket. Without this, two peaks farther apart than freqMask raw bins
// alias to the same packed value (Pack's mask alone would silently
// truncate them), which the default cfg.W = 4096 (maxBin ~2046) hits
// directly since freqMask is only 1023.
func quantizeFreq(f, maxBin int) int {
	q := (f*freqMask + maxBin/2) / maxBin
	if q > freqMask {
		q = freqMask
	}
	if q < 0 {
		q = 0
	}
	return q
}

func groupByFrame(pks []peaks.Peak) map[int][]peaks.Peak {
	m := make(map[int][]peaks.Peak, len(pks))
	for _, p := range pks {
		m[p.T] = append(m[p.T], p)
	}
	for t := range m {
		row := m[t]
		// stable ordering by frequency bin within a frame.
		for i := 1; i < len(row); i++ {
			for j := i; j > 0 && row[j-1].F > row[j].F; j-- {
				row[j-1], row[j] = row[j], row[j-1]
			}
		}
		m[t] = row
	}
	return m
}

func sortedFrames(m map[int][]peaks.Peak) []int {
	frames := make([]int, 0, len(m))
	for t := range m {
		frames = append(frames, t)
	}
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j-1] > frames[j]; j-- {
			frames[j-1], frames[j] = frames[j], frames[j-1]
		}
	}
	return frames
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
