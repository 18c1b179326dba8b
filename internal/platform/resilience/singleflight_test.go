package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentCalls(t *testing.T) {
	var g SingleFlight
	var runs int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := g.Do("fixtures/date_2026-02-11", func() (any, error) {
				atomic.AddInt32(&runs, 1)
				time.Sleep(20 * time.Millisecond)
				return "payload", nil
			})
			if err != nil || val != "payload" {
				t.Errorf("Do = %v, %v", val, err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
	if got := g.InFlight(); got != 0 {
		t.Fatalf("flights left behind: %d", got)
	}
}

func TestSingleFlight_PanicReleasesWaiters(t *testing.T) {
	var g SingleFlight
	entered := make(chan struct{})
	release := make(chan struct{})

	leaderErr := make(chan error, 1)
	go func() {
		_, err, _ := g.Do("players/id_7.json", func() (any, error) {
			close(entered)
			<-release
			panic("provider decoder blew up")
		})
		leaderErr <- err
	}()
	<-entered

	waiterErr := make(chan error, 1)
	go func() {
		_, err, _ := g.Do("players/id_7.json", func() (any, error) {
			panic("second flight")
		})
		waiterErr <- err
	}()

	// give the waiter time to join the leader's flight
	time.Sleep(20 * time.Millisecond)
	close(release)

	for name, ch := range map[string]chan error{"leader": leaderErr, "waiter": waiterErr} {
		select {
		case err := <-ch:
			if !errors.Is(err, ErrFlightPanicked) {
				t.Fatalf("%s error = %v, want ErrFlightPanicked", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s blocked after panic", name)
		}
	}

	val, err, _ := g.Do("players/id_7.json", func() (any, error) { return "fresh", nil })
	if err != nil || val != "fresh" {
		t.Fatalf("key not reusable after panic: %v, %v", val, err)
	}
}
