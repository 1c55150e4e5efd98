package policy

import (
	"log/slog"

	"github.com/prodops/chainsizer/internal/config"
)

// Engine evaluates splitting sizes and step chain conversion for workflow
// requests. It holds no per-request state: one Engine serves any number of
// sequential validations. Concurrent calls must not share a splitting-entry
// list, since validation mutates entries in place.
type Engine struct {
	cfg      *config.Config
	metadata MetadataSource
	log      *slog.Logger
}

// New creates an Engine. A nil metadata source disables catalog lookups
// (every dataset reports "not observed"); a nil logger discards diagnostics
// into the default logger.
func New(cfg *config.Config, metadata MetadataSource, log *slog.Logger) *Engine {
	if metadata == nil {
		metadata = NoMetadata{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, metadata: metadata, log: log}
}
