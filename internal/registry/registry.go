package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/relaymcp/relaymcp/internal/mcperr"
	"github.com/relaymcp/relaymcp/internal/transport/stdio"
)

// breakerFailures is the number of consecutive spawn failures for one
// named backend before the registry fails fast instead of spawning
// another doomed child.
const breakerFailures = 3

// breakerCooldown is how long the breaker stays open before allowing
// another trial spawn.
const breakerCooldown = 30 * time.Second

// Registry is the immutable, process-lifetime table of backend
// descriptors plus the live children spawned from them. It tracks
// spawn order so Shutdown can tear children down in reverse.
type Registry struct {
	mu       sync.Mutex
	order    []string
	backends map[string]*Backend
	breakers map[string]*gobreaker.CircuitBreaker

	hasDefault bool

	spawned []*stdio.Child // in spawn order, for reverse shutdown
}

// New builds a Registry from a resolved, already-exclusive list of
// named backends (see Resolve), plus an optional default backend
// served at the root URL paths. def may be nil if no default server
// was configured. Names must be unique; New panics on a caller bug
// (duplicate names from the same source), since that is a config
// validation defect that should have been caught earlier.
func New(backends []Backend, def *Backend) *Registry {
	r := &Registry{
		backends: make(map[string]*Backend, len(backends)+1),
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(backends)+1),
	}
	for i := range backends {
		b := backends[i]
		if _, exists := r.backends[b.Name]; exists {
			panic(fmt.Sprintf("registry: duplicate backend name %q", b.Name))
		}
		r.backends[b.Name] = &b
		r.order = append(r.order, b.Name)
		r.breakers[b.Name] = newBreaker(b.Name)
	}
	if def != nil {
		r.backends[""] = def
		r.breakers[""] = newBreaker("default")
		r.hasDefault = true
	}
	return r
}

// HasDefault reports whether a default (unnamed) server was configured.
func (r *Registry) HasDefault() bool {
	return r.hasDefault
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend:" + name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	})
}

// Lookup returns the descriptor for name, or false if no such backend
// is registered.
func (r *Registry) Lookup(name string) (*Backend, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.backends[name]
	return b, ok
}

// Each returns the registered backends in load order.
func (r *Registry) Each() []*Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Backend, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.backends[name])
	}
	return out
}

// Instantiate spawns a fresh child process for the named backend,
// guarded by a per-backend circuit breaker: after breakerFailures
// consecutive spawn failures it fails fast with the breaker's own
// error instead of launching another doomed child, until
// breakerCooldown elapses.
func (r *Registry) Instantiate(ctx context.Context, name string) (*stdio.Child, error) {
	backend, ok := r.Lookup(name)
	if !ok {
		return nil, mcperr.New(mcperr.RouteNotFound, name, nil)
	}

	r.mu.Lock()
	breaker := r.breakers[name]
	r.mu.Unlock()

	result, err := breaker.Execute(func() (interface{}, error) {
		return stdio.Start(ctx, stdio.Spec{
			Command: backend.Command,
			Args:    backend.Args,
			Env:     backend.Env,
			Dir:     backend.Dir,
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, mcperr.New(mcperr.SpawnFailed, name+": circuit open", err)
		}
		return nil, err
	}

	child := result.(*stdio.Child)

	r.mu.Lock()
	r.spawned = append(r.spawned, child)
	r.mu.Unlock()

	return child, nil
}

// Shutdown tears down every child spawned through this registry, in
// reverse spawn order.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	spawned := r.spawned
	r.spawned = nil
	r.mu.Unlock()

	var firstErr error
	for i := len(spawned) - 1; i >= 0; i-- {
		if err := spawned[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
