package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/paraswtf/fftrack/internal/audiosrc"
)

// runListen captures one complete buffer from the default audio source
// and then behaves exactly like identify: buffered capture, not a
// continuous streaming match loop.
func runListen(args []string) int {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	seconds := fs.Float64("seconds", 8, "capture length in seconds")
	top := fs.Int("top", 1, "number of ranked candidates to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	src, err := audiosrc.FromMicrophone(*seconds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		return 2
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		return 2
	}
	defer closer()

	res, err := e.Identify(context.Background(), src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		return 2
	}
	return reportIdentify(e, res, *top)
}
