// Package location fans position fixes from devices out to navigation sessions.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"navigate-map/internal/navigation"
)

var ErrStaleFix = errors.New("fix older than last known position")

// Store persists the last known fix of a session.
type Store interface {
	SetFix(ctx context.Context, sessionID string, fix navigation.Fix) error
	GetFix(ctx context.Context, sessionID string) (navigation.Fix, bool, error)
}

// Feed is the navigation.LocationSource of one session.
type Feed struct {
	sessionID string
	store     Store
	logger    *slog.Logger

	mu     sync.RWMutex
	last   navigation.Fix
	hasFix bool
	subs   map[int]func(navigation.Fix)
	nextID int
}

var _ navigation.LocationSource = (*Feed)(nil)

// NewFeed creates a feed. store may be nil.
func NewFeed(sessionID string, store Store, logger *slog.Logger) *Feed {
	return &Feed{
		sessionID: sessionID,
		store:     store,
		logger:    logger,
		subs:      make(map[int]func(navigation.Fix)),
	}
}

// Prime loads the last stored fix, if any.
func (f *Feed) Prime(ctx context.Context) error {
	if f.store == nil {
		return nil
	}
	fix, ok, err := f.store.GetFix(ctx, f.sessionID)
	if err != nil {
		return fmt.Errorf("loading last fix: %w", err)
	}
	if !ok {
		return nil
	}
	f.mu.Lock()
	if !f.hasFix || fix.Timestamp.After(f.last.Timestamp) {
		f.last, f.hasFix = fix, true
	}
	f.mu.Unlock()
	return nil
}

func (f *Feed) LastKnown() (navigation.Fix, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.hasFix
}

func (f *Feed) Subscribe(fn func(navigation.Fix)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Publish records fix and delivers it once to every subscriber. Fixes older
// than the last known one are rejected.
func (f *Feed) Publish(ctx context.Context, fix navigation.Fix) error {
	if err := fix.Validate(); err != nil {
		return err
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}

	f.mu.Lock()
	if f.hasFix && fix.Timestamp.Before(f.last.Timestamp) {
		f.mu.Unlock()
		return ErrStaleFix
	}
	f.last, f.hasFix = fix, true
	subs := make([]func(navigation.Fix), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	if f.store != nil {
		if err := f.store.SetFix(ctx, f.sessionID, fix); err != nil {
			f.logger.Warn("failed to store fix", "sessionID", f.sessionID, "error", err)
		}
	}
	for _, fn := range subs {
		fn(fix)
	}
	return nil
}
