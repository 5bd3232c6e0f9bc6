package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/paraswtf/fftrack/internal/audiosrc"
	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/matcher"
)

func runIdentify(args []string) int {
	fs := flag.NewFlagSet("identify", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	top := fs.Int("top", 1, "number of ranked candidates to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "identify: missing <audio> argument")
		return 2
	}
	path := fs.Arg(0)
	// Flags may also follow the <audio> argument.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}

	src, err := audiosrc.FromWAVFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identify: %v\n", err)
		return 2
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identify: %v\n", err)
		return 2
	}
	defer closer()

	res, err := e.Identify(context.Background(), src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identify: %v\n", err)
		return 2
	}
	return reportIdentify(e, res, *top)
}

// reportIdentify prints the identify result and returns the process exit
// code: 0 on a confident match, 1 on NoMatch.
func reportIdentify(e *engine.Engine, res matcher.Result, top int) int {
	if !res.Matched {
		fmt.Println("no match")
		return 1
	}
	for _, c := range matcher.TopN(res, top) {
		track, ok, err := e.CatalogTrack(context.Background(), c.TrackID)
		title, artist := "unknown", "unknown"
		if err == nil && ok {
			title, artist = track.Title, track.Artist
		}
		fmt.Printf("%d %s %s %.4f %d\n", c.TrackID, title, artist, c.Confidence, c.AlignedOffsetMs)
	}
	return 0
}
