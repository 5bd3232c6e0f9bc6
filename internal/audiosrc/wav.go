// Package audiosrc adapts external audio collaborators (WAV files, the
// default microphone) into engine.AudioSource, the shape the CORE
// consumes. The CORE never decodes a container format itself.
package audiosrc

import (
	"os"

	"github.com/go-audio/wav"

	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
)

// FromWAVFile decodes a PCM WAV file into an engine.AudioSource.
func FromWAVFile(path string) (engine.AudioSource, error) {
	const op = "audiosrc.FromWAVFile"
	f, err := os.Open(path)
	if err != nil {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.InvalidAudio, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.InvalidAudio, nil)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.InvalidAudio, err)
	}
	if buf.Format.NumChannels <= 0 || len(buf.Data) == 0 {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.InvalidAudio, nil)
	}

	samples := make([]float64, len(buf.Data))
	scale := fullScale(buf.SourceBitDepth)
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	return engine.AudioSource{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

func fullScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return float64(int64(1) << uint(bitDepth-1))
}
