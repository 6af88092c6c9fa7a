package topology

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Manager publishes the current topology version. Replacing a version is a
// single pointer swap so in-flight readers finish against the version they
// started with.
type Manager struct {
	current atomic.Pointer[Topology]
}

func NewManager() *Manager {
	return &Manager{}
}

// Current returns the loaded topology, or nil before the first Swap.
// Callers must take it once per operation and not re-fetch mid-way.
func (manager *Manager) Current() *Topology {
	return manager.current.Load()
}

func (manager *Manager) Swap(topology *Topology) {
	old := manager.current.Swap(topology)

	event := log.Info().
		Int("stops", len(topology.stops)).
		Int("routes", len(topology.routes))
	if old != nil {
		event = event.Time("replaced", old.LoadedAt)
	}
	event.Msg("Topology version published")
}
