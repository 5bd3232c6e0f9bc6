// Package peaks implements the constellation-map peak picker: local
// time-frequency maxima above a dynamic threshold.
package peaks

import (
	"sort"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/dsp"
	"gonum.org/v1/gonum/stat"
)

// Peak is a local maximum of the spectrogram: frame index t, frequency
// bin f, and its magnitude.
type Peak struct {
	T   int
	F   int
	Mag float64
}

// Pick extracts the constellation map from a spectrogram: peaks that are
// locally maximal in a (ΔT, ΔF) neighborhood and clear a dynamic
// threshold, emitted in non-decreasing t and, for equal t, increasing f.
// Alpha is tuned, if needed, to approach
// cfg.TargetDensity peaks/sec; the search is a deterministic function of
// the spectrogram and configuration, so the result is reproducible.
func Pick(spec []dsp.Spectrum, cfg config.Config) []Peak {
	if len(spec) == 0 {
		return nil
	}
	means := runningMeans(spec, cfg.MeanWindow)

	alpha := cfg.Alpha
	peaks := pickWithAlpha(spec, means, cfg, alpha)

	durationSec := float64(len(spec)) * float64(cfg.H) / float64(cfg.Fs)
	if durationSec > 0 && cfg.TargetDensity > 0 {
		peaks = adjustToTargetDensity(spec, means, cfg, peaks, durationSec)
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].T != peaks[j].T {
			return peaks[i].T < peaks[j].T
		}
		return peaks[i].F < peaks[j].F
	})
	return peaks
}

// runningMeans computes M[t], the mean magnitude across all bins of frame
// t averaged over a window of ±halfWidth frames, used as the adaptive
// component of the peak threshold.
func runningMeans(spec []dsp.Spectrum, halfWidth int) []float64 {
	frameMean := make([]float64, len(spec))
	for t, row := range spec {
		if len(row) == 0 {
			frameMean[t] = 0
			continue
		}
		frameMean[t] = stat.Mean(row, nil)
	}
	out := make([]float64, len(spec))
	for t := range spec {
		lo := t - halfWidth
		if lo < 0 {
			lo = 0
		}
		hi := t + halfWidth
		if hi >= len(spec) {
			hi = len(spec) - 1
		}
		out[t] = stat.Mean(frameMean[lo:hi+1], nil)
	}
	return out
}

func pickWithAlpha(spec []dsp.Spectrum, means []float64, cfg config.Config, alpha float64) []Peak {
	var out []Peak
	for t := range spec {
		row := spec[t]
		threshold := cfg.GAbs
		if v := alpha * means[t]; v > threshold {
			threshold = v
		}
		for f := range row {
			v := row[f]
			if v < threshold {
				continue
			}
			if isLocalMax(spec, t, f, cfg.DeltaT, cfg.DeltaF) {
				out = append(out, Peak{T: t, F: f, Mag: v})
			}
		}
	}
	return out
}

func isLocalMax(spec []dsp.Spectrum, t, f, dt, df int) bool {
	v := spec[t][f]
	strictlyGreaterSeen := false
	for ddt := -dt; ddt <= dt; ddt++ {
		tt := t + ddt
		if tt < 0 || tt >= len(spec) {
			continue
		}
		row := spec[tt]
		for ddf := -df; ddf <= df; ddf++ {
			ff := f + ddf
			if ff < 0 || ff >= len(row) {
				continue
			}
			if ddt == 0 && ddf == 0 {
				continue
			}
			nv := row[ff]
			if nv > v {
				return false
			}
			if nv < v {
				strictlyGreaterSeen = true
			}
		}
	}
	return strictlyGreaterSeen
}

// adjustToTargetDensity nudges alpha up or down (bounded binary search) to
// bring the peak count close to cfg.TargetDensity peaks/sec, then returns
// the peak set for the alpha it settled on. The search itself, and its
// stopping point, are pure functions of the inputs so the final peak set
// remains a deterministic function of the spectrogram and configuration.
func adjustToTargetDensity(spec []dsp.Spectrum, means []float64, cfg config.Config, initial []Peak, durationSec float64) []Peak {
	target := cfg.TargetDensity * durationSec
	best := initial
	lo, hi := cfg.Alpha*0.25, cfg.Alpha*4
	bestDiff := diffFromTarget(len(initial), target)

	for iter := 0; iter < 12; iter++ {
		mid := (lo + hi) / 2
		candidate := pickWithAlpha(spec, means, cfg, mid)
		d := diffFromTarget(len(candidate), target)
		if d < bestDiff {
			bestDiff = d
			best = candidate
		}
		if float64(len(candidate)) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return best
}

func diffFromTarget(count int, target float64) float64 {
	d := float64(count) - target
	if d < 0 {
		return -d
	}
	return d
}
