// Package engine wires the pipeline stages A through G into the two
// operations a caller actually needs: Ingest and Identify.
package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/paraswtf/fftrack/internal/catalog"
	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/dsp"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
	"github.com/paraswtf/fftrack/internal/fingerprint"
	"github.com/paraswtf/fftrack/internal/index"
	"github.com/paraswtf/fftrack/internal/logging"
	"github.com/paraswtf/fftrack/internal/matcher"
	"github.com/paraswtf/fftrack/internal/peaks"
)

// AudioSource is raw PCM at a caller-known rate and channel count, as
// decoded by a CLI adapter (WAV file, microphone capture) before it ever
// reaches the CORE.
type AudioSource struct {
	Samples    []float64 // interleaved PCM, one float64 per sample
	SampleRate int
	Channels   int
}

// Meta is the catalog metadata a caller supplies on ingest.
type Meta struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
}

// Engine holds the two open stores and the configuration every pipeline
// stage is run under. It is safe for concurrent use by multiple
// goroutines calling Ingest and Identify.
type Engine struct {
	cfg     config.Config
	idx     index.Index
	catalog *catalog.Store
}

// New builds an Engine over an already-open index and catalog.
func New(cfg config.Config, idx index.Index, cat *catalog.Store) *Engine {
	return &Engine{cfg: cfg, idx: idx, catalog: cat}
}

// Ingest fingerprints src and adds it to the catalog and index, returning
// its assigned track_id. The catalog insert happens first so a crash
// between the two leaves an orphaned catalog row rather than postings
// with no metadata; a follow-up ingest pass can always detect and repair
// orphaned rows by track_id, whereas orphaned postings are invisible to
// any catalog scan.
func (e *Engine) Ingest(ctx context.Context, src AudioSource, meta Meta) (uint64, error) {
	const op = "engine.Ingest"
	hashes, err := e.fingerprint(ctx, src)
	if err != nil {
		return 0, fftrackerr.Wrap(op, err)
	}

	trackID, err := e.catalog.Put(ctx, catalog.Track{
		Title:       meta.Title,
		Artist:      meta.Artist,
		DurationMs:  durationMs(src),
		Album:       meta.Album,
		ReleaseDate: meta.ReleaseDate,
	})
	if err != nil {
		return 0, fftrackerr.Wrap(op, err)
	}

	if err := e.idx.InsertTrack(ctx, trackID, hashes); err != nil {
		// Roll back the catalog row on a detached context: ctx may already
		// be cancelled (that's often why InsertTrack failed), and reusing
		// it here would make the compensating delete a no-op right when
		// it's needed most.
		_ = e.catalog.Delete(context.Background(), trackID)
		return 0, fftrackerr.Wrap(op, err)
	}

	logging.Info("ingested track_id=%d hashes=%d", trackID, len(hashes))
	return trackID, nil
}

// Identify fingerprints src and matches it against the index, returning
// the ranked candidates. Result.Matched == false means no candidate
// cleared the acceptance thresholds; it is not an error.
func (e *Engine) Identify(ctx context.Context, src AudioSource) (matcher.Result, error) {
	const op = "engine.Identify"
	hashes, err := e.fingerprint(ctx, src)
	if err != nil {
		return matcher.Result{}, fftrackerr.Wrap(op, err)
	}
	res, err := matcher.Match(ctx, e.idx, hashes, e.cfg)
	if err != nil {
		return matcher.Result{}, fftrackerr.Wrap(op, err)
	}
	return res, nil
}

// WithCatalog exposes the underlying catalog store to callers (the CLI's
// catalog-admin subcommands) that need operations Engine itself does not
// wrap, such as a full iteration.
func (e *Engine) WithCatalog(fn func(*catalog.Store) error) error {
	return fn(e.catalog)
}

// CatalogTrack looks up a track's catalog metadata by id, for callers
// (the CLI) that need to display a match's title and artist.
func (e *Engine) CatalogTrack(ctx context.Context, trackID uint64) (catalog.Track, bool, error) {
	return e.catalog.Get(ctx, trackID)
}

// DeleteTrack removes trackID from both the catalog and the index.
func (e *Engine) DeleteTrack(ctx context.Context, trackID uint64) error {
	const op = "engine.DeleteTrack"
	if err := e.idx.DeleteTrack(ctx, trackID); err != nil {
		return fftrackerr.Wrap(op, err)
	}
	if err := e.catalog.Delete(ctx, trackID); err != nil {
		return fftrackerr.Wrap(op, err)
	}
	return nil
}

// fingerprint runs stages A through D over src: framing, a parallel
// per-frame spectrogram pass that preserves frame order, peak picking and
// hashing.
func (e *Engine) fingerprint(ctx context.Context, src AudioSource) ([]fingerprint.Hash, error) {
	const op = "engine.fingerprint"
	frames, err := dsp.PrepareMono(src.Samples, src.SampleRate, src.Channels, e.cfg.Fs, e.cfg.W, e.cfg.H)
	if err != nil {
		return nil, fftrackerr.Wrap(op, err)
	}

	select {
	case <-ctx.Done():
		return nil, fftrackerr.New(op, fftrackerr.Cancelled, ctx.Err())
	default:
	}

	window := dsp.Hann(e.cfg.W)
	spec, err := spectrogramParallel(ctx, frames, window)
	if err != nil {
		return nil, fftrackerr.Wrap(op, err)
	}

	pks := peaks.Pick(spec, e.cfg)
	return fingerprint.Hashes(pks, e.cfg), nil
}

// spectrogramParallel computes each frame's spectrum on its own worker
// while preserving output order: workers write into result[i] directly,
// so ordering never depends on completion order.
func spectrogramParallel(ctx context.Context, frames []dsp.Frame, window []float64) ([]dsp.Spectrum, error) {
	const op = "engine.spectrogramParallel"
	if len(frames) == 0 {
		return nil, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(frames) {
		workers = len(frames)
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]dsp.Spectrum, len(frames))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var cancelled bool
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan := dsp.NewPlan(len(window), window)
			for i := range jobs {
				select {
				case <-ctx.Done():
					mu.Lock()
					cancelled = true
					mu.Unlock()
					continue
				default:
				}
				out[i] = plan.Transform(frames[i])
			}
		}()
	}
	for i := range frames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		return nil, fftrackerr.New(op, fftrackerr.Cancelled, ctx.Err())
	}
	return out, nil
}

func durationMs(src AudioSource) int64 {
	if src.Channels <= 0 || src.SampleRate <= 0 {
		return 0
	}
	frameCount := len(src.Samples) / src.Channels
	return int64(1000 * frameCount / src.SampleRate)
}
