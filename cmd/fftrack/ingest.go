package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/paraswtf/fftrack/internal/audiosrc"
	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/fftrackerr"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	title := fs.String("title", "", "track title")
	artist := fs.String("artist", "", "track artist")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "ingest: missing <audio> argument")
		return 2
	}
	path := fs.Arg(0)
	// Flags may also follow the <audio> argument.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}

	src, err := audiosrc.FromWAVFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 2
	}

	meta := audiosrc.ReadEmbeddedMeta(path)
	if *title != "" {
		meta.Title = *title
	}
	if *artist != "" {
		meta.Artist = *artist
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		if fftrackerr.Is(err, fftrackerr.SchemaMismatch) {
			fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
			return 3
		}
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 2
	}
	defer closer()

	trackID, err := e.Ingest(context.Background(), src, engine.Meta{
		Title:       meta.Title,
		Artist:      meta.Artist,
		Album:       meta.Album,
		ReleaseDate: meta.ReleaseDate,
	})
	if err != nil {
		if fftrackerr.Is(err, fftrackerr.SchemaMismatch) {
			fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
			return 3
		}
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 2
	}

	fmt.Println(trackID)
	return 0
}
