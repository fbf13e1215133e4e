package app

import (
	"fmt"
	"os"

	"golang.org/x/text/language"

	"github.com/dshills/cadence/internal/config"
	"github.com/dshills/cadence/internal/hyphen"
	hyphenlua "github.com/dshills/cadence/internal/hyphen/lua"
	"github.com/dshills/cadence/internal/logging"
)

// buildHyphenator selects the hyphenator for the configured language. A
// Lua script wins over a pattern file; with neither, the heuristic
// hyphenator serves every language.
//
// The returned close function releases script state.
func buildHyphenator(cfg config.AnalysisConfig, logger *logging.Logger) (hyphen.Hyphenator, func(), error) {
	noop := func() {}
	registry := hyphen.NewRegistry(hyphen.NewHeuristic())

	switch {
	case cfg.LuaScript != "":
		h, err := hyphenlua.Load(cfg.LuaScript)
		if err != nil {
			return nil, noop, err
		}
		if err := registry.Register(cfg.Language, h); err != nil {
			h.Close()
			return nil, noop, err
		}
		logger.Info("using Lua hyphenator %s for %s", cfg.LuaScript, cfg.Language)
		return mustLookup(registry, cfg.Language, h.Close)

	case cfg.Patterns != "":
		tag, err := language.Parse(cfg.Language)
		if err != nil {
			return nil, noop, err
		}
		f, err := os.Open(cfg.Patterns)
		if err != nil {
			return nil, noop, fmt.Errorf("opening patterns: %w", err)
		}
		defer f.Close()

		l, err := hyphen.LoadLiang(f, cfg.Patterns,
			hyphen.WithLeftMin(cfg.LeftMin),
			hyphen.WithRightMin(cfg.RightMin),
			hyphen.WithLanguage(tag),
		)
		if err != nil {
			return nil, noop, err
		}
		if err := registry.Register(cfg.Language, l); err != nil {
			return nil, noop, err
		}
		logger.Info("loaded %d patterns from %s for %s", l.PatternCount(), cfg.Patterns, cfg.Language)
	}

	return mustLookup(registry, cfg.Language, noop)
}

func mustLookup(r *hyphen.Registry, lang string, closeFn func()) (hyphen.Hyphenator, func(), error) {
	h, err := r.Lookup(lang)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return h, closeFn, nil
}
