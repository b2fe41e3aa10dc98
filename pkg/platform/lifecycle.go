package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// stage is one startable, stoppable piece of the platform. Either
// function may be nil.
type stage struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle starts platform components in registration order and stops
// them in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	stages  []stage
	running bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Add registers a component.
func (l *Lifecycle) Add(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, stage{name: name, start: start, stop: stop})
}

// OnStart registers a callback to run on startup.
func (l *Lifecycle) OnStart(name string, callback func(context.Context) error) {
	l.Add(name, callback, nil)
}

// OnStop registers a callback to run on shutdown.
func (l *Lifecycle) OnStop(name string, callback func(context.Context) error) {
	l.Add(name, nil, callback)
}

// Closer is something that can be closed.
type Closer interface {
	Close() error
}

// RegisterCloser registers a closer to be closed on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c Closer) {
	l.OnStop(name, func(_ context.Context) error {
		return c.Close()
	})
}

// Start runs the start callbacks. A failure stops the components already
// started, in reverse order.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return errors.New("lifecycle already started")
	}

	for i, s := range l.stages {
		if s.start != nil {
			if err := s.start(ctx); err != nil {
				l.rollback(ctx, i)
				return fmt.Errorf("starting %s: %w", s.name, err)
			}
		}
	}

	l.running = true
	return nil
}

// rollback stops the stages before failedAt in reverse order and forgets
// them.
func (l *Lifecycle) rollback(ctx context.Context, failedAt int) {
	for j := failedAt - 1; j >= 0; j-- {
		s := l.stages[j]
		if s.stop == nil {
			continue
		}
		if err := s.stop(ctx); err != nil {
			slog.Warn("lifecycle rollback: stop failed",
				"component", s.name, "error", err)
		}
	}
	l.stages = l.stages[failedAt:]
}

// Stop runs all stop callbacks in reverse order. Closers registered
// without a start callback run even if Start was never called.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for i := len(l.stages) - 1; i >= 0; i-- {
		s := l.stages[i]
		if s.stop == nil {
			continue
		}
		if !l.running && s.start != nil {
			continue
		}
		if err := s.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", s.name, err))
		}
	}

	l.stages = nil
	l.running = false
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
