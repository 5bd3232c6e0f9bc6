package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Hann returns a Hann window of length n, matching the teacher's
// windowing exactly (0 at both edges).
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Spectrum is one frame's non-negative magnitude spectrum, DC bin
// dropped, length W/2.
type Spectrum []float64

// Spectrogram windows each frame with a Hann window, computes the real
// FFT via go-dsp (the same library the teacher's indexer and matcher use),
// and returns magnitudes with the DC bin dropped. No normalization is
// applied.
func Spectrogram(frames []Frame, window []float64) []Spectrum {
	spec := make([]Spectrum, len(frames))
	for i, frame := range frames {
		spec[i] = magnitudeSpectrum(frame, window)
	}
	return spec
}

func magnitudeSpectrum(frame Frame, window []float64) Spectrum {
	n := len(frame)
	buf := make([]float64, n)
	for i, s := range frame {
		buf[i] = s * window[i]
	}
	coeffs := fft.FFTReal(buf)
	// coeffs[0] is DC; keep bins [1, n/2].
	out := make(Spectrum, n/2)
	for i := 1; i <= n/2; i++ {
		out[i-1] = cmplx.Abs(coeffs[i])
	}
	return out
}

// Plan is a reusable FFT plan bound to a fixed window length, used by the
// engine's per-frame spectrogram workers (for both ingest and identify) so
// each goroutine builds its transform once instead of once per frame (see
// engine.spectrogramParallel for the fan-out). It wraps gonum's real FFT,
// the transform the teacher's algorithm package uses in its own parallel
// indexing workers.
type Plan struct {
	fft    *fourier.FFT
	window []float64
	n      int
}

// NewPlan builds a Plan for frames of length n with the given analysis
// window (must also have length n).
func NewPlan(n int, window []float64) *Plan {
	return &Plan{fft: fourier.NewFFT(n), window: window, n: n}
}

// Transform computes the magnitude spectrum of one frame using the plan,
// with the DC bin dropped, identical in shape to Spectrogram's output.
func (p *Plan) Transform(frame Frame) Spectrum {
	buf := make([]float64, p.n)
	for i, s := range frame {
		buf[i] = s * p.window[i]
	}
	coeffs := p.fft.Coefficients(nil, buf)
	out := make(Spectrum, p.n/2)
	for i := 1; i <= p.n/2; i++ {
		out[i-1] = cmplx.Abs(coeffs[i])
	}
	return out
}
