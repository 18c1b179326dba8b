package resilience

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFlightPanicked is returned to every caller sharing a flight whose
// function panicked.
var ErrFlightPanicked = errors.New("singleflight: function panicked")

// SingleFlight collapses concurrent calls for the same key into one execution.
// Used by the cache fetcher so a burst of misses on one key reaches the
// provider once.
type SingleFlight struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do runs fn once per in-flight key. shared reports whether the result came
// from another caller's execution. A panic in fn is converted to
// ErrFlightPanicked so waiters are always released.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (val any, err error, shared bool) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight{done: make(chan struct{})}
	g.flights[key] = f
	g.mu.Unlock()

	g.run(key, f, fn)
	return f.val, f.err, false
}

// InFlight reports how many keys are currently executing.
func (g *SingleFlight) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flights)
}

func (g *SingleFlight) run(key string, f *flight, fn func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			f.val = nil
			f.err = fmt.Errorf("%w: key=%s: %v", ErrFlightPanicked, key, r)
		}

		g.mu.Lock()
		delete(g.flights, key)
		g.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = fn()
}
