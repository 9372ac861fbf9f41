// Package refresher drives a Session's I/O on a fixed schedule: something
// has to call Session.Sync on a regular cadence, since Sync itself never
// blocks waiting for a clock. Ticker is a small time.NewTicker-driven
// background goroutine that does exactly that and reports whatever error
// Sync returns.
package refresher

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Syncer is the subset of *mqtt.Session a Ticker drives.
type Syncer interface {
	Sync() error
}

// Ticker calls Sync on Session at a fixed Period from a dedicated
// goroutine until Stop is called. It does not itself attempt reconnects;
// OnError is the hook a caller uses to hand a failed Session off to a
// reconnect.Policy.
type Ticker struct {
	Session Syncer
	Period  time.Duration
	Log     *logrus.Logger

	// OnError is invoked, from the Ticker's own goroutine, with every
	// non-nil error Sync returns. A nil OnError just logs and continues;
	// Ticker never stops itself on error, since Sync returning the sticky
	// error repeatedly is itself informative (the caller's OnError is the
	// place to kick off a reconnect.Policy.Run).
	OnError func(err error)

	done chan struct{}
}

// Start launches the background goroutine. Calling Start twice without an
// intervening Stop panics: a Ticker drives at most one goroutine at a time.
func (t *Ticker) Start() {
	if t.done != nil {
		panic("refresher: Ticker already started")
	}
	if t.Period <= 0 {
		panic("refresher: Period must be positive")
	}
	t.done = make(chan struct{})
	done := t.done
	log := t.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	go func() {
		tick := time.NewTicker(t.Period)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				if err := t.Session.Sync(); err != nil {
					if t.OnError != nil {
						t.OnError(err)
					} else {
						log.WithError(err).Debug("refresher: sync failed")
					}
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the background goroutine. Safe to call once after Start;
// a Ticker may be reused by calling Start again afterwards.
func (t *Ticker) Stop() {
	if t.done == nil {
		return
	}
	close(t.done)
	t.done = nil
}
