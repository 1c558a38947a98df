package navigation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"navigate-map/internal/navigation"
)

func TestLoopRunsEventsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := navigation.NewLoop(4)
	go loop.Run(ctx)

	var got []int
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		loop.Post(func() {
			defer wg.Done()
			got = append(got, i)
		})
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("events ran out of order: %v", got)
		}
	}
}

func TestLoopDo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := navigation.NewLoop(1)
	go loop.Run(ctx)

	ran := false
	if err := loop.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("Do returned before running fn")
	}

	cancel()
	select {
	case <-loop.Stopped():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	if err := loop.Do(context.Background(), func() {}); !errors.Is(err, navigation.ErrLoopStopped) {
		t.Errorf("Do after stop = %v, want ErrLoopStopped", err)
	}
	// Post after stop must not block.
	loop.Post(func() {})
	loop.Post(func() {})
}

func TestSessionOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := navigation.NewLoop(16)
	go loop.Run(ctx)

	location := &fakeLocation{}
	engine := &fakeEngine{}
	surface := &recordingSurface{}
	session, err := navigation.NewSession(navigation.Options{
		Variant:    navigation.VariantTwoPoint,
		Location:   location,
		Engine:     engine,
		Surface:    surface,
		Formatter:  fakeFormatter{},
		Dispatcher: loop,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := loop.Do(ctx, session.Attach); err != nil {
		t.Fatal(err)
	}
	// Emitted from another goroutine, as a real location source would.
	done := make(chan struct{})
	go func() {
		defer close(done)
		location.emit(navigation.Fix{GeoPoint: pt(1, 2)})
	}()
	<-done

	var current int
	if err := loop.Do(ctx, func() { current = len(engine.current) }); err != nil {
		t.Fatal(err)
	}
	if current != 1 {
		t.Errorf("fixes forwarded = %d, want 1", current)
	}
}

func TestLoopTryPost(t *testing.T) {
	loop := navigation.NewLoop(1)
	if !loop.TryPost(func() {}) {
		t.Fatal("TryPost on an empty queue failed")
	}
	if loop.TryPost(func() {}) {
		t.Error("TryPost on a full queue succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	cancel()
	select {
	case <-loop.Stopped():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	if loop.TryPost(func() {}) {
		t.Error("TryPost after stop succeeded")
	}
}
