package cli

import (
	"log/slog"

	"github.com/prodops/chainsizer/internal/config"
	"github.com/prodops/chainsizer/internal/dbs"
	"github.com/prodops/chainsizer/internal/policy"
	"github.com/prodops/chainsizer/internal/store"
)

// loadConfig resolves the policy configuration from the --config flag,
// falling back to built-in defaults.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(opts.ConfigPath)
}

// buildEngine wires the policy engine with its collaborators: the dataset
// catalog client when a URL is configured, backed by the SQLite cache when a
// cache path is configured. The returned closer releases the cache store.
func buildEngine(cfg *config.Config) (*policy.Engine, func(), error) {
	closer := func() {}

	var metadata policy.MetadataSource = policy.NoMetadata{}
	if cfg.DBS.URL != "" {
		var cache *store.Store
		if cfg.DBS.CachePath != "" {
			var err error
			cache, err = store.Open(cfg.DBS.CachePath)
			if err != nil {
				return nil, nil, err
			}
			closer = func() {
				if err := cache.Close(); err != nil {
					slog.Error("error closing cache store", "error", err)
				}
			}
		}
		metadata = dbs.NewClient(cfg.DBS, cache)
	}

	return policy.New(cfg, metadata, slog.Default()), closer, nil
}
