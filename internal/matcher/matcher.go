// Package matcher implements the histogram-vote matcher: scoring catalog
// tracks by how many query hashes align to one common offset delta, and
// deciding whether the winner is a confident match.
package matcher

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
	"github.com/paraswtf/fftrack/internal/fingerprint"
	"github.com/paraswtf/fftrack/internal/index"
)

// Candidate is one ranked track result.
type Candidate struct {
	TrackID         uint64
	Score           int // peak_count: size of the largest offset-delta bucket
	TotalPostings   int // total postings matched for this track, any offset
	Delta           int // Δ*, the winning offset delta, in frames
	AlignedOffsetMs int64
	Confidence      float64
}

// Result is the outcome of a Match call: the full ranked candidate list
// plus whether the top candidate clears the acceptance thresholds. A
// Result with Matched == false is not an error: NoMatch is a regular
// return value.
type Result struct {
	Candidates []Candidate
	Matched    bool
}

// Match scores every candidate track against the query hashes and
// decides whether the winner is a confident match.
func Match(ctx context.Context, idx index.Index, queryHashes []fingerprint.Hash, cfg config.Config) (Result, error) {
	const op = "matcher.Match"
	if len(queryHashes) == 0 {
		return Result{}, nil
	}

	type key struct {
		trackID uint64
		delta   int
	}
	buckets := make(map[key]int)
	totals := make(map[uint64]int)

	select {
	case <-ctx.Done():
		return Result{}, fftrackerr.New(op, fftrackerr.Cancelled, ctx.Err())
	default:
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(queryHashes) {
		workers = len(queryHashes)
	}
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan fingerprint.Hash)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for qh := range jobs {
				postings, err := idx.Lookup(ctx, qh.H)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				mu.Lock()
				for _, p := range postings {
					delta := p.AnchorT - qh.TA
					buckets[key{p.TrackID, delta}]++
					totals[p.TrackID]++
				}
				mu.Unlock()
			}
		}()
	}
	for _, qh := range queryHashes {
		jobs <- qh
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return Result{}, fftrackerr.Wrap(op, firstErr)
	}
	if len(buckets) == 0 {
		return Result{}, nil
	}

	type winner struct {
		delta int
		count int
	}
	best := make(map[uint64]winner)
	for k, count := range buckets {
		w, ok := best[k.trackID]
		if !ok || count > w.count || (count == w.count && k.delta < w.delta) {
			best[k.trackID] = winner{delta: k.delta, count: count}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for trackID, w := range best {
		candidates = append(candidates, Candidate{
			TrackID:         trackID,
			Score:           w.count,
			TotalPostings:   totals[trackID],
			Delta:           w.delta,
			AlignedOffsetMs: framesToMs(w.delta, cfg),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalPostings != b.TotalPostings {
			return a.TotalPostings > b.TotalPostings
		}
		return a.TrackID < b.TrackID
	})

	applyConfidence(candidates, cfg)

	matched := candidates[0].Score >= cfg.NMin && candidates[0].Confidence >= cfg.ConfThreshold
	return Result{Candidates: candidates, Matched: matched}, nil
}

// applyConfidence fills in Candidate.Confidence for every candidate,
// using cfg.ConfidenceMode. Only the top candidate's confidence feeds the
// match decision, but the full list carries its own score for callers
// that display ranked alternatives.
func applyConfidence(candidates []Candidate, cfg config.Config) {
	if len(candidates) == 0 {
		return
	}
	switch cfg.ConfidenceMode {
	case config.ConfidenceShare:
		var sum int
		for _, c := range candidates {
			sum += c.Score
		}
		if sum == 0 {
			sum = 1
		}
		for i := range candidates {
			candidates[i].Confidence = float64(candidates[i].Score) / float64(sum)
		}
	default: // config.ConfidenceRatio
		top := float64(candidates[0].Score)
		var runnerUp float64
		if len(candidates) > 1 {
			runnerUp = float64(candidates[1].Score)
		}
		denom := runnerUp + top*cfg.Beta
		if denom < 1 {
			denom = 1
		}
		candidates[0].Confidence = top / denom
		for i := 1; i < len(candidates); i++ {
			c := float64(candidates[i].Score) / denom
			candidates[i].Confidence = c
		}
	}
}

func framesToMs(deltaFrames int, cfg config.Config) int64 {
	return int64(1000 * deltaFrames * cfg.H / cfg.Fs)
}

// TopN trims a Result's ranked candidates to at most n entries, mirroring
// the original implementation's find_top_n_matches.
func TopN(res Result, n int) []Candidate {
	if n <= 0 || n >= len(res.Candidates) {
		return res.Candidates
	}
	return res.Candidates[:n]
}
