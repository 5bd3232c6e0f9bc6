// Command fftrack is the thin CLI wrapper around the CORE: ingest,
// identify, listen, plus bulk-ingest and catalog-admin conveniences.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "ingest":
		os.Exit(runIngest(os.Args[2:]))
	case "identify":
		os.Exit(runIdentify(os.Args[2:]))
	case "listen":
		os.Exit(runListen(os.Args[2:]))
	case "ingest-dir":
		os.Exit(runIngestDir(os.Args[2:]))
	case "catalog":
		os.Exit(runCatalog(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "fftrack: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  fftrack ingest <audio.wav> [--title T] [--artist A] [--index DIR] [--catalog DSN]
  fftrack identify <audio.wav> [--top N] [--index DIR] [--catalog DSN]
  fftrack listen [--seconds N] [--index DIR] [--catalog DSN]
  fftrack ingest-dir <dir> [--index DIR] [--catalog DSN]
  fftrack catalog list [--catalog DSN]
  fftrack catalog delete <track_id> [--index DIR] [--catalog DSN]`)
}
