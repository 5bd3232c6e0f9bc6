package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/paraswtf/fftrack/internal/catalog"
)

// runCatalog implements the catalog-admin conveniences: list and delete.
func runCatalog(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "catalog: expected list|delete")
		return 2
	}
	switch args[0] {
	case "list":
		return runCatalogList(args[1:])
	case "delete":
		return runCatalogDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "catalog: unknown subcommand %q\n", args[0])
		return 2
	}
}

func runCatalogList(args []string) int {
	fs := flag.NewFlagSet("catalog list", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog list: %v\n", err)
		return 2
	}
	defer closer()

	err = e.WithCatalog(func(store *catalog.Store) error {
		return store.Iterate(context.Background(), func(t catalog.Track) bool {
			fmt.Println(t.String())
			return true
		})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog list: %v\n", err)
		return 2
	}
	return 0
}

func runCatalogDelete(args []string) int {
	fs := flag.NewFlagSet("catalog delete", flag.ContinueOnError)
	sf := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "catalog delete: missing <track_id> argument")
		return 2
	}
	trackID, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog delete: invalid track_id: %v\n", err)
		return 2
	}
	// Flags may also follow the <track_id> argument.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}

	e, closer, err := openEngine(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog delete: %v\n", err)
		return 2
	}
	defer closer()

	if err := e.DeleteTrack(context.Background(), trackID); err != nil {
		fmt.Fprintf(os.Stderr, "catalog delete: %v\n", err)
		return 2
	}
	fmt.Printf("deleted track_id=%d\n", trackID)
	return 0
}
