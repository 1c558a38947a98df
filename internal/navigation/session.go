package navigation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetryInterval is the backoff step between recalculations while no
// route can be found. The first retry follows the first fix after a failure.
const DefaultRetryInterval = 10 * time.Second

const maxRetryBackoff = 6

const arrivedText = "You have arrived at your destination"

type Options struct {
	Variant    Variant
	Location   LocationSource
	Engine     RouteEngine
	Surface    Surface
	Formatter  Formatter
	Dispatcher Dispatcher
	Logger     *slog.Logger
	// RetryInterval defaults to DefaultRetryInterval.
	RetryInterval time.Duration
	// MapArea and CautionArea drive the view's OutOfArea and Caution flags
	// when set.
	MapArea     Bounds
	CautionArea Bounds
}

// Session is the navigation state machine for one surface. It is not safe for
// concurrent use: every method must run on the Dispatcher's goroutine.
type Session struct {
	variant    Variant
	location   LocationSource
	engine     RouteEngine
	surface    Surface
	formatter  Formatter
	dispatcher Dispatcher
	logger     *slog.Logger

	start         *GeoPoint
	finish        *GeoPoint
	mode          TravelMode
	followEnabled bool
	following     bool
	state         State

	// epoch of the route computation the session is waiting on, 0 when none.
	epoch uint64
	// rerouting is set while a recalculation from the live position is pending.
	rerouting bool
	// routeFailures counts consecutive computations that found no route.
	routeFailures    int
	lastRouteAttempt time.Time
	retryInterval    time.Duration

	mapArea     Bounds
	cautionArea Bounds
	outOfArea   bool
	caution     bool

	attached            bool
	centered            bool
	unsubscribeLocation func()
	unsubscribeRoute    func()
}

func NewSession(opts Options) (*Session, error) {
	if !opts.Variant.IsValid() {
		return nil, fmt.Errorf("invalid variant %q", opts.Variant)
	}
	if opts.Location == nil || opts.Engine == nil || opts.Surface == nil || opts.Formatter == nil || opts.Dispatcher == nil {
		return nil, errors.New("session requires location, engine, surface, formatter and dispatcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	return &Session{
		variant:       opts.Variant,
		location:      opts.Location,
		engine:        opts.Engine,
		surface:       opts.Surface,
		formatter:     opts.Formatter,
		dispatcher:    opts.Dispatcher,
		logger:        logger.With("variant", opts.Variant),
		mode:          opts.Variant.DefaultMode(),
		state:         StateIdle,
		retryInterval: retry,
		mapArea:       opts.MapArea,
		cautionArea:   opts.CautionArea,
	}, nil
}

func (s *Session) State() State             { return s.state }
func (s *Session) Mode() TravelMode         { return s.mode }
func (s *Session) FollowEnabled() bool      { return s.followEnabled }
func (s *Session) Following() bool          { return s.following }
func (s *Session) Variant() Variant         { return s.variant }
func (s *Session) Start() (GeoPoint, bool)  { return deref(s.start) }
func (s *Session) Finish() (GeoPoint, bool) { return deref(s.finish) }
func (s *Session) Attached() bool           { return s.attached }

func deref(p *GeoPoint) (GeoPoint, bool) {
	if p == nil {
		return GeoPoint{}, false
	}
	return *p, true
}

// Attach subscribes to the collaborators' notifications and primes the view.
// Calling it on an attached session does nothing.
func (s *Session) Attach() {
	if s.attached {
		return
	}
	s.attached = true
	s.unsubscribeLocation = s.location.Subscribe(func(fix Fix) {
		queued := s.dispatcher.TryPost(func() {
			if s.attached {
				s.HandleFix(fix)
			}
		})
		if !queued {
			s.logger.Warn("fix dropped, event queue full or stopped", "lat", fix.Lat, "lon", fix.Lon)
		}
	})
	s.unsubscribeRoute = s.engine.OnRouteDataChanged(func(epoch uint64) {
		s.dispatcher.Post(func() {
			if s.attached {
				s.HandleRouteData(epoch)
			}
		})
	})

	if fix, ok := s.location.LastKnown(); ok {
		s.checkArea(fix.GeoPoint)
		if !s.centered || s.followEnabled || (s.variant == VariantCurrentLocation && s.state != StateNavigating) {
			s.surface.Center(fix.GeoPoint)
		}
	} else if !s.centered {
		s.surface.Center(DefaultCenter)
	}
	s.centered = true

	s.logger.Debug("session attached", "state", s.state)
	s.render()
}

// Detach releases the subscriptions taken by Attach.
func (s *Session) Detach() {
	if !s.attached {
		return
	}
	s.attached = false
	if s.unsubscribeLocation != nil {
		s.unsubscribeLocation()
		s.unsubscribeLocation = nil
	}
	if s.unsubscribeRoute != nil {
		s.unsubscribeRoute()
		s.unsubscribeRoute = nil
	}
	s.logger.Debug("session detached", "state", s.state)
}

// PickPoint handles a long-press on the map.
func (s *Session) PickPoint(p GeoPoint) error {
	if err := p.Validate(); err != nil {
		return s.fail(fmt.Errorf("%w: %w", ErrInvalidPoint, err))
	}

	switch s.variant {
	case VariantTwoPoint:
		switch {
		case s.start == nil:
			s.start = &p
			s.surface.Advise("Start point " + p.String())
		case s.finish == nil:
			s.finish = &p
			s.surface.Advise("Finish point " + p.String())
		default:
			return s.fail(ErrStalePointPick)
		}
	case VariantCurrentLocation:
		if s.state == StateNavigating {
			return s.fail(ErrStalePointPick)
		}
		s.finish = &p
		s.surface.Advise(fmt.Sprintf("Destination: %g, %g", p.Lat, p.Lon))
	}

	if s.state != StateNavigating && s.pointsResolved() {
		s.state = StatePointsSelected
	}
	s.logger.Debug("point picked", "lat", p.Lat, "lon", p.Lon, "state", s.state)
	s.render()
	return nil
}

func (s *Session) pointsResolved() bool {
	if s.variant == VariantCurrentLocation {
		return s.finish != nil
	}
	return s.start != nil && s.finish != nil
}

// ClearPoints forgets the picked points so a new pair can be chosen. It is
// rejected while navigating.
func (s *Session) ClearPoints() error {
	if s.state == StateNavigating {
		return s.fail(ErrAlreadyNavigating)
	}
	s.start, s.finish = nil, nil
	s.state = StateIdle
	s.render()
	return nil
}

// StartNavigation submits the selected endpoints to the engine and enters
// following mode.
func (s *Session) StartNavigation() error {
	if s.state == StateNavigating {
		return s.fail(ErrAlreadyNavigating)
	}

	fix, hasFix := s.location.LastKnown()
	var start GeoPoint
	switch s.variant {
	case VariantTwoPoint:
		if s.start == nil || s.finish == nil {
			return s.fail(ErrMissingDestination)
		}
		start = *s.start
	case VariantCurrentLocation:
		if s.finish == nil {
			return s.fail(ErrMissingDestination)
		}
		if !hasFix {
			return s.fail(ErrLocationUnavailable)
		}
		start = fix.GeoPoint
	}
	finish := *s.finish

	s.mode = s.variant.DefaultMode()
	s.engine.SetEndpoints(start, finish, s.mode)
	s.engine.SetFollowing(true)
	s.following = true
	s.rerouting = false
	s.routeFailures = 0
	s.lastRouteAttempt = time.Time{}
	s.epoch = s.engine.PlanRoute()
	if hasFix {
		s.engine.SetCurrentLocation(fix.GeoPoint)
		s.lastRouteAttempt = fixTime(fix)
	}

	s.state = StateNavigating
	if s.variant == VariantTwoPoint {
		s.followEnabled = true
	}

	s.logger.Info("navigation started", "start", start.String(), "finish", finish.String(), "mode", s.mode, "epoch", s.epoch)
	if s.variant == VariantCurrentLocation {
		s.surface.Advise(fmt.Sprintf("Navigation started from current location to %g, %g", finish.Lat, finish.Lon))
	} else {
		s.surface.Advise(fmt.Sprintf("Navigation started from %s to %s", start, finish))
	}
	s.render()
	return nil
}

// StopNavigation resets the engine and the session. It is safe in any state.
func (s *Session) StopNavigation() {
	s.engine.SetFollowing(false)
	s.engine.ClearRoute()
	s.engine.ClearTargets()

	s.following = false
	s.epoch = 0
	s.rerouting = false
	s.routeFailures = 0
	s.state = StateIdle
	if s.variant == VariantCurrentLocation {
		s.finish = nil
	}

	s.logger.Info("navigation stopped")
	s.render()
}

// ToggleNavigation is the start/stop button.
func (s *Session) ToggleNavigation() error {
	if s.state == StateNavigating {
		s.StopNavigation()
		return nil
	}
	return s.StartNavigation()
}

// SelectMode switches the travel mode, recomputing an existing route.
func (s *Session) SelectMode(mode TravelMode) error {
	if !mode.IsValid() {
		return s.fail(fmt.Errorf("%w: %q", ErrInvalidMode, mode))
	}
	s.mode = mode
	s.engine.SetMode(mode)
	if s.engine.IsRouteCalculated() {
		epoch := s.engine.Recalculate()
		if s.state == StateNavigating {
			s.epoch = epoch
			s.rerouting = false
			s.routeFailures = 0
		}
		s.logger.Debug("route recalculation requested", "mode", mode, "epoch", epoch)
	}
	s.render()
	return nil
}

func (s *Session) ToggleFollow() {
	s.followEnabled = !s.followEnabled
	if s.followEnabled {
		if fix, ok := s.location.LastKnown(); ok {
			s.surface.Center(fix.GeoPoint)
		}
	}
	s.render()
}

// FollowCamera makes the engine track the live position.
func (s *Session) FollowCamera() error {
	fix, ok := s.location.LastKnown()
	if !ok {
		return s.fail(ErrLocationUnavailable)
	}
	s.engine.SetFollowing(true)
	s.engine.SetCurrentLocation(fix.GeoPoint)
	s.following = true
	s.render()
	return nil
}

// OverviewCamera shows the whole route instead of tracking the position.
func (s *Session) OverviewCamera() error {
	if s.state != StateNavigating {
		return s.fail(ErrNotNavigating)
	}
	fix, ok := s.location.LastKnown()
	if !ok {
		return s.fail(ErrLocationUnavailable)
	}
	s.engine.SetFollowing(false)
	s.engine.SetCurrentLocation(fix.GeoPoint)
	s.following = false
	s.render()
	return nil
}

// HandleFix processes a position update. Reaching the end of the route stops
// navigation. While navigating, straying from the route while following, or
// having no route after a failed computation, recalculates from the new
// position.
func (s *Session) HandleFix(fix Fix) {
	s.engine.SetCurrentLocation(fix.GeoPoint)
	s.checkArea(fix.GeoPoint)
	if s.followEnabled {
		s.surface.Center(fix.GeoPoint)
	}
	if s.arrived() {
		s.arrive()
		return
	}
	if s.shouldReroute(fix) {
		s.reroute(fix)
	}
	s.render()
}

func (s *Session) arrived() bool {
	return s.state == StateNavigating && s.engine.IsRouteCalculated() && s.engine.Arrived()
}

func (s *Session) arrive() {
	s.logger.Info("destination reached", "epoch", s.epoch)
	s.surface.Advise(arrivedText)
	s.StopNavigation()
}

func (s *Session) shouldReroute(fix Fix) bool {
	if s.state != StateNavigating || s.rerouting || s.finish == nil {
		return false
	}
	if s.routeFailures > 0 && !s.engine.IsRouteCalculated() {
		return fixTime(fix).Sub(s.lastRouteAttempt) >= s.retryBackoff()
	}
	return s.following && s.engine.IsRouteCalculated() && s.engine.OffRoute()
}

func (s *Session) reroute(fix Fix) {
	retry := s.routeFailures > 0
	s.engine.SetEndpoints(fix.GeoPoint, *s.finish, s.mode)
	s.epoch = s.engine.Recalculate()
	s.rerouting = true
	s.lastRouteAttempt = fixTime(fix)
	if retry {
		s.logger.Info("retrying route", "from", fix.String(), "epoch", s.epoch, "failures", s.routeFailures)
		return
	}
	s.logger.Info("off route, recalculating", "from", fix.String(), "epoch", s.epoch)
	s.surface.Advise("Off route. Recalculating...")
}

func (s *Session) retryBackoff() time.Duration {
	steps := min(s.routeFailures-1, maxRetryBackoff)
	return time.Duration(steps) * s.retryInterval
}

// fixTime is the fix timestamp, or now for fixes without one.
func fixTime(fix Fix) time.Time {
	if fix.Timestamp.IsZero() {
		return time.Now()
	}
	return fix.Timestamp
}

func (s *Session) checkArea(p GeoPoint) {
	s.outOfArea = !s.mapArea.IsZero() && !s.mapArea.Contains(p)
	s.caution = !s.cautionArea.IsZero() && !s.cautionArea.Contains(p)
}

// HandleRouteData processes a routing-data-changed notification. Notifications
// for an epoch other than the one in flight are dropped. A computation that
// found no route is advised once per run of failures.
func (s *Session) HandleRouteData(epoch uint64) {
	if s.state != StateNavigating || epoch != s.epoch {
		s.logger.Debug("stale route notification dropped", "epoch", epoch, "current", s.epoch, "state", s.state)
		return
	}
	s.rerouting = false

	if !s.engine.IsRouteCalculated() {
		s.routeFailures++
		s.logger.Warn("no route calculated", "epoch", epoch, "failures", s.routeFailures, "error", s.engine.LastError())
		if s.routeFailures == 1 {
			s.surface.Advise(advisory(s.variant, ErrNoRoute))
		}
		s.render()
		return
	}

	s.routeFailures = 0
	if s.arrived() {
		s.arrive()
		return
	}
	s.render()
}

// RouteInfo derives the turn-by-turn panel for the current state.
func (s *Session) RouteInfo() RouteInfo {
	if s.state == StateNavigating && s.routeFailures > 0 && !s.engine.IsRouteCalculated() {
		return failedRouteInfo()
	}
	return DeriveRouteInfo(s.state, s.engine, s.formatter)
}

func (s *Session) View() View {
	v := View{
		Variant:       s.variant,
		State:         s.state,
		Mode:          s.mode,
		Start:         s.start,
		Finish:        s.finish,
		FollowEnabled: s.followEnabled,
		Following:     s.following,
		RouteInfo:     s.RouteInfo(),
		OutOfArea:     s.outOfArea,
		Caution:       s.caution,
	}

	navigating := s.state == StateNavigating
	v.StartStop.Label = labelStart
	if navigating {
		v.StartStop.Label = labelStop
	}
	switch s.variant {
	case VariantTwoPoint:
		v.StartStop.Visible = true
		v.StartStop.Enabled = s.pointsResolved() || navigating
	case VariantCurrentLocation:
		v.StartStop.Visible = s.finish != nil || navigating
		v.StartStop.Enabled = true
		v.Camera.Visible = navigating
		v.Camera.Enabled = navigating
		v.Camera.Label = labelOverview
		if !s.following {
			v.Camera.Label = labelFollow
		}
	}
	return v
}

func (s *Session) render() {
	s.surface.Render(s.View())
}

func (s *Session) fail(err error) error {
	s.logger.Debug("session operation rejected", "state", s.state, "error", err)
	s.surface.Advise(advisory(s.variant, err))
	return err
}
