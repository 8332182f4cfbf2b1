package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunLoopsStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan string, 2)
	wait := func(name string) loop {
		return loop{name: name, run: func(ctx context.Context) error {
			<-ctx.Done()
			stopped <- name
			return nil
		}}
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := runLoops(ctx, time.Second, wait("a"), wait("b")); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if len(stopped) != 2 {
		t.Fatalf("expected both loops to stop, got %d", len(stopped))
	}
}

func TestRunLoopsCancelsSiblingsOnFailure(t *testing.T) {
	boom := errors.New("listen tcp :8081: address already in use")
	siblingStopped := false
	err := runLoops(context.Background(), time.Second,
		loop{name: "status_server", run: func(ctx context.Context) error { return boom }},
		loop{name: "poller", run: func(ctx context.Context) error {
			<-ctx.Done()
			siblingStopped = true
			return nil
		}},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected loop error, got %v", err)
	}
	if !siblingStopped {
		t.Fatalf("expected sibling loop to be cancelled")
	}
}

func TestRunLoopsGivesUpAfterShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := runLoops(ctx, 30*time.Millisecond, loop{name: "poller", run: func(ctx context.Context) error {
		<-release
		return nil
	}})
	if !errors.Is(err, errShutdownTimeout) {
		t.Fatalf("expected shutdown timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("runLoops waited too long")
	}
}
