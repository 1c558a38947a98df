package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"navigate-map/internal/navigation"
)

var errNoEndpoints = errors.New("route endpoints not set")

// Planner computes a route. *Client satisfies it.
type Planner interface {
	CalculateRoute(ctx context.Context, req RouteRequest) (*Route, error)
}

type EngineOptions struct {
	// Timeout bounds a single route computation.
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
	Language  string
	// OffRouteTolerance is how far, in metres, the current location may be
	// from the route before it counts as off route.
	OffRouteTolerance float64
	// ArrivalRadius is how close, in metres, the current location must get to
	// the end of the route to count as arrived.
	ArrivalRadius float64
	// CostingOptions apply to car routes only.
	CostingOptions *CostingOptions
	// Cache is shared between engines when set; otherwise each engine gets
	// its own of CacheSize entries.
	Cache *RouteCache
}

type RouteCache = expirable.LRU[string, *Route]

func NewRouteCache(size int, ttl time.Duration) *RouteCache {
	return expirable.NewLRU[string, *Route](size, nil, ttl)
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Timeout:           10 * time.Second,
		CacheSize:         64,
		CacheTTL:          15 * time.Minute,
		OffRouteTolerance: 50,
		ArrivalRadius:     20,
	}
}

// Engine implements navigation.RouteEngine on top of a Planner. Route
// computations run on their own goroutine; each one is tagged with an epoch
// and its result is discarded if another computation or ClearRoute happened
// in the meantime.
type Engine struct {
	planner Planner
	logger  *slog.Logger
	opts    EngineOptions
	cache   *RouteCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	start     *navigation.GeoPoint
	finish    *navigation.GeoPoint
	mode      navigation.TravelMode
	following bool
	current   *navigation.GeoPoint
	route     *Route
	lastErr   error
	track     track
	progress  progress
	epoch     uint64
	inflight  context.CancelFunc
	listeners map[int]func(uint64)
	nextID    int
}

var _ navigation.RouteEngine = (*Engine)(nil)

func NewEngine(planner Planner, logger *slog.Logger, opts EngineOptions) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultEngineOptions().CacheSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultEngineOptions().Timeout
	}
	if opts.OffRouteTolerance <= 0 {
		opts.OffRouteTolerance = DefaultEngineOptions().OffRouteTolerance
	}
	if opts.ArrivalRadius <= 0 {
		opts.ArrivalRadius = DefaultEngineOptions().ArrivalRadius
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewRouteCache(opts.CacheSize, opts.CacheTTL)
	}
	return &Engine{
		planner:   planner,
		logger:    logger,
		opts:      opts,
		cache:     cache,
		ctx:       ctx,
		cancel:    cancel,
		mode:      navigation.ModeCar,
		listeners: make(map[int]func(uint64)),
	}
}

func (e *Engine) SetEndpoints(start, finish navigation.GeoPoint, mode navigation.TravelMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.start = &start
	e.finish = &finish
	e.mode = mode
}

func (e *Engine) SetMode(mode navigation.TravelMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

func (e *Engine) PlanRoute() uint64 {
	return e.submit("plan")
}

// Recalculate recomputes the route between the current endpoints with the
// current mode.
func (e *Engine) Recalculate() uint64 {
	return e.submit("recalculate")
}

func (e *Engine) submit(reason string) uint64 {
	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	if e.inflight != nil {
		e.inflight()
		e.inflight = nil
	}

	if e.start == nil || e.finish == nil {
		e.mu.Unlock()
		e.logger.Warn("route computation skipped", "reason", reason, "epoch", epoch, "error", errNoEndpoints)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.finishRoute(epoch, nil, errNoEndpoints)
		}()
		return epoch
	}

	req := e.request()
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.Timeout)
	e.inflight = cancel
	e.mu.Unlock()

	e.logger.Debug("route computation started", "reason", reason, "epoch", epoch, "costing", req.Costing)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		route, err := e.calculate(ctx, req)
		if err != nil {
			e.logger.Warn("route computation failed", "epoch", epoch, "error", err)
		}
		e.finishRoute(epoch, route, err)
	}()
	return epoch
}

// request must be called with e.mu held.
func (e *Engine) request() RouteRequest {
	stop := LocationTypeBreak
	req := RouteRequest{
		Locations: []LocationRequest{
			{Lat: e.start.Lat, Lon: e.start.Lon, Type: &stop},
			{Lat: e.finish.Lat, Lon: e.finish.Lon, Type: &stop},
		},
		Costing: CostingFor(e.mode),
	}
	if req.Costing == CostingAuto && e.opts.CostingOptions != nil {
		opts := *e.opts.CostingOptions
		req.CostingOptions = &opts
	}
	if e.opts.Language != "" {
		lang := e.opts.Language
		req.Language = &lang
	}
	return req
}

func (e *Engine) calculate(ctx context.Context, req RouteRequest) (*Route, error) {
	key := cacheKey(req)
	if route, ok := e.cache.Get(key); ok {
		return route, nil
	}
	route, err := e.planner.CalculateRoute(ctx, req)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, route)
	return route, nil
}

func cacheKey(req RouteRequest) string {
	key := string(req.Costing)
	for _, l := range req.Locations {
		key += fmt.Sprintf("|%.6f,%.6f", l.Lat, l.Lon)
	}
	if req.Language != nil {
		key += "|" + *req.Language
	}
	return key
}

// finishRoute stores the outcome of computation epoch and notifies listeners,
// unless the computation has been superseded.
func (e *Engine) finishRoute(epoch uint64, route *Route, err error) {
	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		e.logger.Debug("stale route result dropped", "epoch", epoch)
		return
	}
	e.inflight = nil
	e.lastErr = err
	e.setRoute(route)
	listeners := make([]func(uint64), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(epoch)
	}
}

// setRoute must be called with e.mu held.
func (e *Engine) setRoute(route *Route) {
	e.route = route
	if route == nil {
		e.track = track{}
		e.progress = progress{}
		return
	}
	e.track = newTrack(route)
	e.progress = e.track.progressAt(e.current)
}

func (e *Engine) SetFollowing(following bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.following = following
}

func (e *Engine) Following() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.following
}

func (e *Engine) SetCurrentLocation(p navigation.GeoPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = &p
	if e.route != nil {
		e.progress = e.track.progressAt(e.current)
	}
}

func (e *Engine) IsRouteCalculated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.route != nil
}

// LastError is the reason the latest computation produced no route, nil after
// a success or ClearRoute.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Arrived reports whether the current location is within the arrival radius
// of the end of the route.
func (e *Engine) Arrived() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil || e.current == nil {
		return false
	}
	return e.track.arrived(*e.current, e.opts.ArrivalRadius)
}

func (e *Engine) OffRoute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil || e.current == nil {
		return false
	}
	return e.track.offRoute(*e.current, e.opts.OffRouteTolerance)
}

func (e *Engine) NextTurn() (navigation.Turn, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil {
		return navigation.Turn{}, false
	}
	return e.progress.turn, e.progress.hasTurn
}

func (e *Engine) Remaining() navigation.Remaining {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil {
		return navigation.Remaining{}
	}
	return e.progress.remaining
}

// ClearRoute drops the current route and abandons any computation in flight.
func (e *Engine) ClearRoute() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	if e.inflight != nil {
		e.inflight()
		e.inflight = nil
	}
	e.lastErr = nil
	e.setRoute(nil)
}

func (e *Engine) ClearTargets() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.start = nil
	e.finish = nil
}

func (e *Engine) OnRouteDataChanged(fn func(epoch uint64)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Close abandons computations in flight and waits for their goroutines.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}
