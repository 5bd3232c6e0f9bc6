package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/paraswtf/fftrack/internal/audiosrc"
	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/logging"
)

// runIngestDir walks a directory of WAV files and ingests them
// concurrently, one goroutine pool over engine.Ingest, mirroring the
// teacher's buildIndex worker-pool-plus-progress-bar shape.
func runIngestDir(args []string) int {
	fs := flag.NewFlagSet("ingest-dir", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	workers := fs.Int("workers", 0, "concurrent ingest workers (0 = auto)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "ingest-dir: missing <dir> argument")
		return 2
	}
	root := fs.Arg(0)
	// Flags may also follow the <dir> argument.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest-dir: %v\n", err)
		return 2
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "ingest-dir: no .wav files under %s\n", root)
		return 2
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest-dir: %v\n", err)
		return 2
	}
	defer closer()

	w := *workers
	if w <= 0 {
		w = runtime.NumCPU() - 1
		if w < 2 {
			w = 2
		}
	}

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Ingesting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	jobs := make(chan string, len(files))
	var wg sync.WaitGroup
	var failed int
	var mu sync.Mutex

	for i := 0; i < w; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := ingestOne(e, path); err != nil {
					logging.Warn("ingest-dir: %s: %v", path, err)
					mu.Lock()
					failed++
					mu.Unlock()
				}
				bar.Increment()
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	p.Wait()

	fmt.Printf("ingested %d/%d tracks\n", len(files)-failed, len(files))
	if failed > 0 {
		return 2
	}
	return 0
}

func ingestOne(e *engine.Engine, path string) error {
	src, err := audiosrc.FromWAVFile(path)
	if err != nil {
		return err
	}
	meta := audiosrc.ReadEmbeddedMeta(path)
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	_, err = e.Ingest(context.Background(), src, meta)
	return err
}
