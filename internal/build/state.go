package build

import (
	"maps"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// State is shared by every task of one graph execution.
type State struct {
	Config *config.Config
	Mode   config.Mode
	OutDir string
	Report *Report

	observer Observer

	mu    sync.Mutex
	pages map[string]string
}

// NewState prepares the state for running graph in mode. A nil observer is
// replaced by NoopObserver.
func NewState(cfg *config.Config, graph string, mode config.Mode, obs Observer) *State {
	if obs == nil {
		obs = NoopObserver{}
	}
	return &State{
		Config:   cfg,
		Mode:     mode,
		OutDir:   cfg.OutputDir(mode),
		Report:   NewReport(graph, mode),
		observer: obs,
		pages:    make(map[string]string),
	}
}

// RecordPage remembers that output (relative to OutDir) was rendered from source.
func (s *State) RecordPage(output, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[output] = source
}

// Pages returns a copy of the output -> source page manifest.
func (s *State) Pages() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.pages)
}

// Dev reports whether the state targets the development output.
func (s *State) Dev() bool { return s.Mode == config.ModeDev }
