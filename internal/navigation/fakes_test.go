package navigation_test

import (
	"fmt"
	"time"

	"navigate-map/internal/navigation"
)

type fakeLocation struct {
	fix          navigation.Fix
	ok           bool
	subs         []func(navigation.Fix)
	unsubscribed int
}

func (f *fakeLocation) LastKnown() (navigation.Fix, bool) { return f.fix, f.ok }

func (f *fakeLocation) Subscribe(fn func(navigation.Fix)) func() {
	f.subs = append(f.subs, fn)
	return func() { f.unsubscribed++ }
}

func (f *fakeLocation) set(lat, lon float64) {
	f.fix = navigation.Fix{GeoPoint: navigation.GeoPoint{Lat: lat, Lon: lon}, Timestamp: time.Unix(1700000000, 0)}
	f.ok = true
}

func (f *fakeLocation) emit(fix navigation.Fix) {
	for _, fn := range f.subs {
		fn(fix)
	}
}

type endpoints struct {
	start, finish navigation.GeoPoint
	mode          navigation.TravelMode
}

type fakeEngine struct {
	calls      []string
	endpoints  []endpoints
	modes      []navigation.TravelMode
	current    []navigation.GeoPoint
	following  bool
	calculated bool
	offRoute   bool
	arrived    bool
	lastErr    error
	turn       *navigation.Turn
	remaining  navigation.Remaining
	epoch      uint64
	listeners  []func(uint64)
	cancelled  int
}

func (e *fakeEngine) record(name string) { e.calls = append(e.calls, name) }

func (e *fakeEngine) count(name string) int {
	n := 0
	for _, c := range e.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (e *fakeEngine) SetEndpoints(start, finish navigation.GeoPoint, mode navigation.TravelMode) {
	e.record("SetEndpoints")
	e.endpoints = append(e.endpoints, endpoints{start, finish, mode})
}

func (e *fakeEngine) SetMode(mode navigation.TravelMode) {
	e.record("SetMode")
	e.modes = append(e.modes, mode)
}

func (e *fakeEngine) PlanRoute() uint64 {
	e.record("PlanRoute")
	e.epoch++
	return e.epoch
}

func (e *fakeEngine) Recalculate() uint64 {
	e.record("Recalculate")
	e.epoch++
	return e.epoch
}

func (e *fakeEngine) SetFollowing(following bool) {
	e.record(fmt.Sprintf("SetFollowing(%t)", following))
	e.following = following
}

func (e *fakeEngine) SetCurrentLocation(p navigation.GeoPoint) {
	e.record("SetCurrentLocation")
	e.current = append(e.current, p)
}

func (e *fakeEngine) IsRouteCalculated() bool { return e.calculated }

func (e *fakeEngine) OffRoute() bool { return e.offRoute }

func (e *fakeEngine) Arrived() bool { return e.arrived }

func (e *fakeEngine) LastError() error { return e.lastErr }

func (e *fakeEngine) NextTurn() (navigation.Turn, bool) {
	if e.turn == nil {
		return navigation.Turn{}, false
	}
	return *e.turn, true
}

func (e *fakeEngine) Remaining() navigation.Remaining { return e.remaining }

func (e *fakeEngine) ClearRoute() {
	e.record("ClearRoute")
	e.calculated = false
}

func (e *fakeEngine) ClearTargets() { e.record("ClearTargets") }

func (e *fakeEngine) OnRouteDataChanged(fn func(uint64)) func() {
	e.listeners = append(e.listeners, fn)
	return func() { e.cancelled++ }
}

func (e *fakeEngine) notify(epoch uint64) {
	for _, fn := range e.listeners {
		fn(epoch)
	}
}

type recordingSurface struct {
	views      []navigation.View
	advisories []string
	centers    []navigation.GeoPoint
}

func (s *recordingSurface) Render(v navigation.View)     { s.views = append(s.views, v) }
func (s *recordingSurface) Advise(msg string)            { s.advisories = append(s.advisories, msg) }
func (s *recordingSurface) Center(p navigation.GeoPoint) { s.centers = append(s.centers, p) }

func (s *recordingSurface) last() navigation.View {
	if len(s.views) == 0 {
		return navigation.View{}
	}
	return s.views[len(s.views)-1]
}

type fakeFormatter struct{}

func (fakeFormatter) Distance(m float64) string       { return fmt.Sprintf("%.0f m", m) }
func (fakeFormatter) Duration(d time.Duration) string { return fmt.Sprintf("%d min", int(d.Minutes())) }

// inlineDispatcher runs events immediately, as the test goroutine owns the session.
type inlineDispatcher struct{}

func (inlineDispatcher) Post(fn func()) { fn() }

func (inlineDispatcher) TryPost(fn func()) bool {
	fn()
	return true
}
