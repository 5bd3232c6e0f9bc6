package main

import (
	"flag"

	"github.com/paraswtf/fftrack/internal/catalog"
	"github.com/paraswtf/fftrack/internal/config"
	"github.com/paraswtf/fftrack/internal/engine"
	"github.com/paraswtf/fftrack/internal/index"
)

const (
	defaultIndexDir  = "./fftrack-index"
	defaultCatalogDS = "./fftrack-catalog.db"
)

// storeFlags registers the flags common to every subcommand that opens
// the index and catalog stores.
type storeFlags struct {
	indexDir string
	catalog  string
}

func registerStoreFlags(fs *flag.FlagSet) *storeFlags {
	sf := &storeFlags{}
	fs.StringVar(&sf.indexDir, "index", defaultIndexDir, "index store directory")
	fs.StringVar(&sf.catalog, "catalog", defaultCatalogDS, "catalog store DSN")
	return sf
}

// openEngine loads configuration from the environment, opens both stores
// and returns a ready Engine plus a closer for both.
func openEngine(sf *storeFlags) (*engine.Engine, func(), error) {
	cfg, err := config.LoadEnv("", config.Default())
	if err != nil {
		return nil, nil, err
	}

	idx, err := index.Open(sf.indexDir, cfg)
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Open(sf.catalog)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}

	closer := func() {
		cat.Close()
		idx.Close()
	}
	return engine.New(cfg, idx, cat), closer, nil
}
