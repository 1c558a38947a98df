package navigation

import "time"

// LocationSource supplies position fixes. Subscribe callbacks run on the
// source's own goroutine; the returned func cancels the subscription.
type LocationSource interface {
	LastKnown() (Fix, bool)
	Subscribe(fn func(Fix)) (unsubscribe func())
}

// Turn describes the next maneuver on the active route.
type Turn struct {
	Instruction string
	// Distance to the maneuver in meters.
	Distance float64
	Type     TurnType
}

type Remaining struct {
	Distance float64 // meters
	Time     time.Duration
}

// RouteEngine computes and tracks a route. PlanRoute and Recalculate start an
// asynchronous computation and return its epoch; completion (or failure) is
// reported through OnRouteDataChanged with that epoch.
type RouteEngine interface {
	SetEndpoints(start, finish GeoPoint, mode TravelMode)
	SetMode(mode TravelMode)
	PlanRoute() uint64
	Recalculate() uint64
	SetFollowing(following bool)
	SetCurrentLocation(p GeoPoint)
	IsRouteCalculated() bool
	// OffRoute reports whether the current location has strayed from the
	// calculated route.
	OffRoute() bool
	// Arrived reports whether the current location has reached the end of
	// the calculated route.
	Arrived() bool
	// LastError is why the latest computation produced no route.
	LastError() error
	NextTurn() (Turn, bool)
	Remaining() Remaining
	ClearRoute()
	ClearTargets()
	OnRouteDataChanged(fn func(epoch uint64)) (cancel func())
}

// Surface is the user-facing side of a session.
type Surface interface {
	Render(view View)
	Advise(message string)
	Center(p GeoPoint)
}

// Formatter renders distances and durations for display.
type Formatter interface {
	Distance(meters float64) string
	Duration(d time.Duration) string
}

// Dispatcher runs fn on the goroutine that owns a session.
type Dispatcher interface {
	Post(fn func())
	// TryPost queues fn without blocking and reports whether it was queued.
	TryPost(fn func()) bool
}
