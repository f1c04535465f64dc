// Package lifecycle coordinates startup and shutdown of long-running subsystems.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator runs startup hooks concurrently, records their failures,
// and runs shutdown in two stages once its context is cancelled: drain hooks
// first, then shutdown hooks.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	drainWg    sync.WaitGroup
	shutdownWg sync.WaitGroup
	drained    chan struct{}
	drainOnce  sync.Once

	mu    sync.RWMutex
	ready bool
	errs  []error
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a hook to run concurrently during startup.
// A non-nil error keeps the coordinator from reporting ready.
func (c *Coordinator) OnStartup(name string, fn func(ctx context.Context) error) {
	c.startupWg.Go(func() {
		if err := fn(c.ctx); err != nil {
			c.mu.Lock()
			c.errs = append(c.errs, fmt.Errorf("%s: %w", name, err))
			c.mu.Unlock()
		}
	})
}

// OnDrain registers a hook that runs once the context is cancelled. Drain
// hooks finish in-flight work that still writes to resources closed by
// shutdown hooks.
func (c *Coordinator) OnDrain(fn func()) {
	c.drainWg.Go(func() {
		<-c.ctx.Done()
		fn()
	})
}

// OnShutdown registers a hook that runs after every drain hook has returned.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(func() {
		<-c.ctx.Done()
		<-c.drained
		fn()
	})
}

// Ready reports whether startup finished without hook failures.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Err returns the joined startup hook failures, if any.
func (c *Coordinator) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return errors.Join(c.errs...)
}

// WaitForStartup blocks until every startup hook returns. The coordinator
// becomes ready only when none of them failed.
func (c *Coordinator) WaitForStartup() error {
	c.startupWg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.Join(c.errs...)
	c.ready = err == nil
	return err
}

// Shutdown cancels the context, waits for drain hooks and then for shutdown
// hooks, all within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.mu.Lock()
	c.ready = false
	c.mu.Unlock()

	c.cancel()

	c.drainOnce.Do(func() {
		go func() {
			c.drainWg.Wait()
			close(c.drained)
		}()
	})

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
