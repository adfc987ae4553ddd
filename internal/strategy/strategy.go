package strategy

import (
	"fmt"
	"sort"
	"sync"

	"hagglebench/internal/domain"
)

// Agent is the capability handle for one seated strategy. An implementation
// is bound to one (scenario, seat) pair and is never shared; the protocol
// engine that created it discards it when the negotiation ends.
//
// Offer receives the allocation last proposed to this seat (nil on the first
// call of seat 0) and returns the allocation the agent wants for itself, or
// nil to accept the received offer. Strategy code is untrusted: any returned
// error ends the negotiation and is attributed to this seat.
type Agent interface {
	Offer(received domain.Allocation) (domain.Allocation, error)
}

// Factory resolves a strategy into a fresh handle for one negotiation.
// counts and ownValues describe the scenario from this seat's perspective.
type Factory func(seat int, counts []int, ownValues []int, roundBudget int) (Agent, error)

// Definition is one entry of the tournament agent pool: a display identifier
// plus the means of resolving a capability handle.
type Definition struct {
	ID  string
	New Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a strategy to the compiled-in registry. It panics on a
// duplicate id; registration happens from init funcs only.
func Register(id string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("strategy %q registered twice", id))
	}
	registry[id] = factory
}

// Lookup resolves a registered strategy id into a Definition.
func Lookup(id string) (Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[id]
	if !ok {
		return Definition{}, fmt.Errorf("strategy %q is not registered", id)
	}
	return Definition{ID: id, New: factory}, nil
}

// Resolve maps a roster of ids to Definitions, preserving order.
func Resolve(ids []string) ([]Definition, error) {
	defs := make([]Definition, 0, len(ids))
	for _, id := range ids {
		def, err := Lookup(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// RegisteredIDs lists every registered strategy id in sorted order.
func RegisteredIDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
