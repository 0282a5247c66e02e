// Package workers drives the bridge loops on fixed intervals and serves the
// status API.
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Job interface {
	RunOnce(ctx context.Context) error
}

type JobFunc func(ctx context.Context) error

func (f JobFunc) RunOnce(ctx context.Context) error { return f(ctx) }

// Leaser hands out exclusive ownership of a stream across bridge instances.
type Leaser interface {
	Acquire(stream string) (bool, error)
	Release(stream string) error
}

// Worker runs Job once, then again every Interval until the context ends.
// A failed run is logged and retried on the next tick.
type Worker struct {
	Name     string
	Interval time.Duration
	Job      Job
	// lease key; empty runs without a lease
	Stream string
	Lease  Leaser
	Log    logrus.FieldLogger

	// overridable in tests
	After func(d time.Duration) <-chan time.Time
	Now   func() time.Time
}

func (w *Worker) Run(ctx context.Context) {
	w.Log.Infof("Starting %s worker, interval=%s", w.Name, w.Interval)
	for {
		w.Tick(ctx)
		select {
		case <-ctx.Done():
			w.Log.Infof("%s worker stopped", w.Name)
			return
		case <-w.after(w.Interval):
		}
	}
}

// Tick performs a single run and reports its error.
func (w *Worker) Tick(ctx context.Context) error {
	m := defaultMetrics()
	if w.Lease != nil && w.Stream != "" {
		ok, err := w.Lease.Acquire(w.Stream)
		if err != nil {
			m.runs.WithLabelValues(w.Name, "error").Inc()
			w.Log.Errorf("Cannot acquire lease for %s: %v", w.Stream, err)
			return err
		}
		if !ok {
			m.runs.WithLabelValues(w.Name, "skipped").Inc()
			w.Log.Debugf("Lease for %s is held by another instance", w.Stream)
			return nil
		}
		defer func() {
			if err := w.Lease.Release(w.Stream); err != nil {
				w.Log.Warnf("Cannot release lease for %s: %v", w.Stream, err)
			}
		}()
	}

	start := w.now()
	err := w.Job.RunOnce(ctx)
	m.duration.WithLabelValues(w.Name).Observe(w.now().Sub(start).Seconds())
	switch {
	case err == nil:
		m.runs.WithLabelValues(w.Name, "ok").Inc()
		m.lastSuccess.WithLabelValues(w.Name).Set(float64(w.now().Unix()))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	default:
		m.runs.WithLabelValues(w.Name, "error").Inc()
		w.Log.Errorf("An exception occurred in %s: %v", w.Name, err)
	}
	return err
}

func (w *Worker) after(d time.Duration) <-chan time.Time {
	if w.After != nil {
		return w.After(d)
	}
	return time.After(d)
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// RunAll starts every worker in its own goroutine and waits until all of
// them have returned.
func RunAll(ctx context.Context, workers ...*Worker) {
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()
}
