package connection

import (
	"sync"

	"github.com/scoutgame/settlement-worker/internal/config"
)

// registryKey identifies one client slot by season and chain
type registryKey struct {
	season  string
	chainID uint64
}

// Registry hands out connection managers keyed by (season, chain id).
// Each season's NFT contract may live on a different chain; the registry
// replaces hidden global client singletons with an explicit lookup.
type Registry struct {
	mu       sync.Mutex
	base     *config.ChainConfig
	managers map[registryKey]*ConnectionManager
}

// NewRegistry creates a registry using base as the template configuration
func NewRegistry(base *config.ChainConfig) *Registry {
	return &Registry{
		base:     base,
		managers: make(map[registryKey]*ConnectionManager),
	}
}

// Manager returns the connection manager for (season, chainID), creating it
// on first use
func (r *Registry) Manager(season string, chainID uint64) *ConnectionManager {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{season: season, chainID: chainID}
	if manager, ok := r.managers[key]; ok {
		return manager
	}

	cfg := *r.base
	cfg.ChainID = chainID
	manager := NewConnectionManager(&cfg)
	r.managers[key] = manager
	return manager
}

// Close closes all managed connections
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, manager := range r.managers {
		if err := manager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.managers = make(map[registryKey]*ConnectionManager)
	return firstErr
}
