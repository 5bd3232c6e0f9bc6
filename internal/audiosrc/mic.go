package audiosrc

import (
	"github.com/gordonklaus/portaudio"

	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
)

// micSampleRate is the default input device's capture rate; the engine
// (dsp.PrepareMono, on both Ingest and Identify) resamples it down to the
// CORE's canonical Fs like any other source.
const (
	micSampleRate   = 44100
	micChannels     = 1
	micBufferFrames = 4096
)

// FromMicrophone captures durationSec seconds from the default input
// device and returns it as an engine.AudioSource. It is the "listen"
// subcommand's audio-source collaborator.
func FromMicrophone(durationSec float64) (engine.AudioSource, error) {
	const op = "audiosrc.FromMicrophone"
	if err := portaudio.Initialize(); err != nil {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	defer portaudio.Terminate()

	buf := make([]float32, micBufferFrames)
	stream, err := portaudio.OpenDefaultStream(micChannels, 0, float64(micSampleRate), micBufferFrames, buf)
	if err != nil {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.Internal, err)
	}
	defer stream.Stop()

	totalSamples := int(float64(micSampleRate) * durationSec)
	samples := make([]float64, 0, totalSamples)
	for len(samples) < totalSamples {
		if err := stream.Read(); err != nil {
			return engine.AudioSource{}, fftrackerr.New(op, fftrackerr.Internal, err)
		}
		for _, s := range buf {
			samples = append(samples, float64(s))
			if len(samples) >= totalSamples {
				break
			}
		}
	}

	return engine.AudioSource{
		Samples:    samples,
		SampleRate: micSampleRate,
		Channels:   micChannels,
	}, nil
}
