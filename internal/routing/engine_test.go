package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"navigate-map/internal/navigation"
)

type fakePlanner struct {
	mu       sync.Mutex
	requests []RouteRequest
	route    *Route
	err      error
	block    chan struct{}
}

func (f *fakePlanner) CalculateRoute(ctx context.Context, req RouteRequest) (*Route, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.route, f.err
}

func (f *fakePlanner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, planner Planner) (*Engine, chan uint64) {
	t.Helper()
	e := NewEngine(planner, discardLogger(), DefaultEngineOptions())
	t.Cleanup(e.Close)
	notified := make(chan uint64, 8)
	e.OnRouteDataChanged(func(epoch uint64) { notified <- epoch })
	return e, notified
}

func waitEpoch(t *testing.T, ch <-chan uint64) uint64 {
	t.Helper()
	select {
	case epoch := <-ch:
		return epoch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for route notification")
	}
	return 0
}

var (
	origin = navigation.GeoPoint{Lat: 0, Lon: 0}
	dest   = navigation.GeoPoint{Lat: 0, Lon: 0.03}
)

func TestEnginePlanRoute(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeBicycle)
	epoch := e.PlanRoute()
	if got := waitEpoch(t, notified); got != epoch {
		t.Fatalf("notified epoch %d, want %d", got, epoch)
	}

	if !e.IsRouteCalculated() {
		t.Fatal("route not calculated")
	}
	turn, ok := e.NextTurn()
	if !ok || turn.Type != navigation.TurnRight {
		t.Errorf("next turn = %+v, %t", turn, ok)
	}
	if rem := e.Remaining(); rem.Distance <= 0 || rem.Time <= 0 {
		t.Errorf("remaining = %+v", rem)
	}

	req := planner.requests[0]
	if req.Costing != CostingBicycle || len(req.Locations) != 2 || req.Locations[1].Lon != dest.Lon {
		t.Errorf("request = %+v", req)
	}

	e.SetCurrentLocation(navigation.GeoPoint{Lat: 0, Lon: 0.025})
	if turn, _ := e.NextTurn(); turn.Type != navigation.TurnStraight {
		t.Errorf("after moving, next turn = %+v", turn)
	}
}

func TestEngineFailureReportsNoRoute(t *testing.T) {
	planner := &fakePlanner{err: ErrNoRoute}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	epoch := e.PlanRoute()
	if got := waitEpoch(t, notified); got != epoch {
		t.Fatalf("notified epoch %d, want %d", got, epoch)
	}
	if e.IsRouteCalculated() {
		t.Error("failed computation reported a route")
	}
	if _, ok := e.NextTurn(); ok {
		t.Error("next turn without a route")
	}
}

func TestEngineWithoutEndpoints(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e, notified := newTestEngine(t, planner)

	epoch := e.PlanRoute()
	if got := waitEpoch(t, notified); got != epoch {
		t.Fatalf("notified epoch %d, want %d", got, epoch)
	}
	if planner.calls() != 0 || e.IsRouteCalculated() {
		t.Error("route computed without endpoints")
	}
}

func TestEngineClearRouteDropsInflight(t *testing.T) {
	planner := &fakePlanner{route: testRoute(), block: make(chan struct{})}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	e.ClearRoute()
	e.ClearTargets()
	close(planner.block)
	e.Close()

	if e.IsRouteCalculated() {
		t.Error("cleared computation stored a route")
	}
	select {
	case epoch := <-notified:
		t.Errorf("stale computation notified epoch %d", epoch)
	default:
	}
}

func TestEngineSupersededComputation(t *testing.T) {
	planner := &fakePlanner{route: testRoute(), block: make(chan struct{})}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	first := e.PlanRoute()
	e.SetMode(navigation.ModePedestrian)
	second := e.Recalculate()
	if second <= first {
		t.Fatalf("epochs not increasing: %d then %d", first, second)
	}
	close(planner.block)

	if got := waitEpoch(t, notified); got != second {
		t.Errorf("notified epoch %d, want %d", got, second)
	}
	e.Close()
	select {
	case epoch := <-notified:
		t.Errorf("unexpected extra notification for epoch %d", epoch)
	default:
	}
}

func TestEngineCachesRoutes(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)
	e.Recalculate()
	waitEpoch(t, notified)
	if got := planner.calls(); got != 1 {
		t.Errorf("planner calls = %d, want 1", got)
	}

	e.SetMode(navigation.ModePedestrian)
	e.Recalculate()
	waitEpoch(t, notified)
	if got := planner.calls(); got != 2 {
		t.Errorf("planner calls after mode change = %d, want 2", got)
	}
}

func TestEngineListenerCancel(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e := NewEngine(planner, discardLogger(), DefaultEngineOptions())
	defer e.Close()

	called := make(chan uint64, 1)
	cancel := e.OnRouteDataChanged(func(epoch uint64) { called <- epoch })
	cancel()

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	e.Close()
	select {
	case <-called:
		t.Error("cancelled listener was notified")
	default:
	}
	if !e.IsRouteCalculated() {
		t.Error("route not stored")
	}
}

func TestEngineFollowing(t *testing.T) {
	e := NewEngine(&fakePlanner{}, discardLogger(), DefaultEngineOptions())
	defer e.Close()
	e.SetFollowing(true)
	if !e.Following() {
		t.Error("following not set")
	}
	e.SetFollowing(false)
	if e.Following() {
		t.Error("following not cleared")
	}
}

func TestEngineTimeout(t *testing.T) {
	planner := &fakePlanner{block: make(chan struct{})}
	opts := DefaultEngineOptions()
	opts.Timeout = 10 * time.Millisecond
	e := NewEngine(planner, discardLogger(), opts)
	defer e.Close()
	notified := make(chan uint64, 1)
	e.OnRouteDataChanged(func(epoch uint64) { notified <- epoch })

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	epoch := e.PlanRoute()
	if got := waitEpoch(t, notified); got != epoch {
		t.Fatalf("notified epoch %d, want %d", got, epoch)
	}
	if e.IsRouteCalculated() {
		t.Error("timed out computation stored a route")
	}
}

func TestEngineOffRoute(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e, notified := newTestEngine(t, planner)

	e.SetCurrentLocation(navigation.GeoPoint{Lat: 1, Lon: 1})
	if e.OffRoute() {
		t.Error("off route without a route")
	}

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)
	if !e.OffRoute() {
		t.Error("far location not reported off route")
	}
	e.SetCurrentLocation(navigation.GeoPoint{Lat: 0.0001, Lon: 0.015})
	if e.OffRoute() {
		t.Error("location on the shape reported off route")
	}
}

func TestEngineLastError(t *testing.T) {
	planner := &fakePlanner{err: ErrNoRoute}
	e, notified := newTestEngine(t, planner)

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)
	if err := e.LastError(); !errors.Is(err, ErrNoRoute) {
		t.Errorf("LastError() = %v, want ErrNoRoute", err)
	}

	e.ClearRoute()
	if err := e.LastError(); err != nil {
		t.Errorf("LastError() after clear = %v", err)
	}

	planner.mu.Lock()
	planner.err, planner.route = nil, testRoute()
	planner.mu.Unlock()
	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)
	if err := e.LastError(); err != nil {
		t.Errorf("LastError() after success = %v", err)
	}
}

func TestEngineArrived(t *testing.T) {
	planner := &fakePlanner{route: testRoute()}
	e, notified := newTestEngine(t, planner)

	e.SetCurrentLocation(dest)
	if e.Arrived() {
		t.Error("arrived without a route")
	}

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)

	tests := []struct {
		name string
		pos  navigation.GeoPoint
		want bool
	}{
		{"at the end", dest, true},
		{"within radius", navigation.GeoPoint{Lat: 0.0001, Lon: 0.0299}, true},
		{"mid route", navigation.GeoPoint{Lat: 0, Lon: 0.015}, false},
		{"just short", navigation.GeoPoint{Lat: 0, Lon: 0.0295}, false},
	}
	for _, tt := range tests {
		e.SetCurrentLocation(tt.pos)
		if got := e.Arrived(); got != tt.want {
			t.Errorf("%s: Arrived() = %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestEngineRequestOptions(t *testing.T) {
	highways, tolls := Ratio(0.2), Ratio(0)
	opts := DefaultEngineOptions()
	opts.CostingOptions = &CostingOptions{UseHighways: &highways, UseTolls: &tolls}
	planner := &fakePlanner{route: testRoute()}
	e := NewEngine(planner, discardLogger(), opts)
	t.Cleanup(e.Close)
	notified := make(chan uint64, 8)
	e.OnRouteDataChanged(func(epoch uint64) { notified <- epoch })

	e.SetEndpoints(origin, dest, navigation.ModeCar)
	e.PlanRoute()
	waitEpoch(t, notified)
	e.SetEndpoints(origin, dest, navigation.ModePedestrian)
	e.PlanRoute()
	waitEpoch(t, notified)

	planner.mu.Lock()
	defer planner.mu.Unlock()
	if len(planner.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(planner.requests))
	}
	car, walk := planner.requests[0], planner.requests[1]
	for _, l := range car.Locations {
		if l.Type == nil || *l.Type != LocationTypeBreak {
			t.Errorf("location type = %v, want break", l.Type)
		}
	}
	if car.CostingOptions == nil || *car.CostingOptions.UseHighways != 0.2 || *car.CostingOptions.UseTolls != 0 {
		t.Errorf("car costing options = %+v", car.CostingOptions)
	}
	if walk.CostingOptions != nil {
		t.Errorf("pedestrian request carries costing options %+v", walk.CostingOptions)
	}
}
