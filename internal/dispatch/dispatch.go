// Package dispatch runs remote side effects of local writes. Failures never
// propagate to the caller of the local write; they go to a Reporter instead.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Failure describes a remote operation that did not complete.
type Failure struct {
	Op  string    `json:"op"`
	Key string    `json:"key"`
	Err error     `json:"-"`
	At  time.Time `json:"at"`
}

// Reporter receives failures. Implementations must not block.
type Reporter interface {
	Report(Failure)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Failure)

func (f ReporterFunc) Report(fl Failure) { f(fl) }

type Dispatcher struct {
	logger   *slog.Logger
	reporter Reporter
	timeout  time.Duration
	wg       sync.WaitGroup
}

// New creates a Dispatcher. reporter may be nil, in which case failures are
// only logged. timeout bounds every operation.
func New(logger *slog.Logger, reporter Reporter, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		logger:   logger.With("component", "dispatch"),
		reporter: reporter,
		timeout:  timeout,
	}
}

// Run executes fn on the caller's goroutine and reports a failure. Like Go,
// fn gets ctx's values under the dispatcher timeout but not its
// cancellation, so a client that goes away does not abort the write. The
// error is returned for callers that want to log it; it is never retried.
func (d *Dispatcher) Run(ctx context.Context, op, key string, fn func(context.Context) error) error {
	runCtx, cancel := d.detach(ctx)
	defer cancel()
	err := fn(runCtx)
	if err != nil {
		d.fail(op, key, err)
	}
	return err
}

// Go executes fn on its own goroutine. The context keeps ctx's values but
// not its cancellation, so the work outlives the request that started it.
func (d *Dispatcher) Go(ctx context.Context, op, key string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		runCtx, cancel := d.detach(ctx)
		defer cancel()
		if err := fn(runCtx); err != nil {
			d.fail(op, key, err)
		}
	}()
}

func (d *Dispatcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
}

// Wait blocks until every operation started with Go has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fail(op, key string, err error) {
	d.logger.Warn("remote operation failed", "op", op, "key", key, "error", err)
	if d.reporter != nil {
		d.reporter.Report(Failure{Op: op, Key: key, Err: err, At: time.Now().UTC()})
	}
}
