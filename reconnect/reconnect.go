// Package reconnect redials a fresh transport for a Session that has
// entered its sticky error state, installs it and clears the error before
// handing control back to the caller's normal Sync loop. It does not
// re-issue CONNECT or any SUBSCRIBE; the caller enqueues those after Run
// returns.
package reconnect

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	mqtt "github.com/nilq/mqttc"
)

// Backoff implements an exponential backoff delay, exported so callers
// outside the session engine (this package, and any custom reconnect
// loop) can reuse it.
type Backoff struct {
	Wait        time.Duration
	MaxWait     time.Duration
	StartWait   time.Duration
	ExpMinusOne uint32
}

// NewBackoff returns a Backoff capped at maxWait.
func NewBackoff(maxWait time.Duration) Backoff {
	return Backoff{MaxWait: maxWait}
}

// Hit resets Wait back to StartWait, called after a successful attempt.
func (b *Backoff) Hit() {
	if b.MaxWait == 0 {
		panic("reconnect: MaxWait cannot be zero")
	}
	b.Wait = b.StartWait
}

// Miss sleeps for the current Wait duration (honoring ctx cancellation)
// and doubles Wait for next time, capped at MaxWait.
func (b *Backoff) Miss(ctx context.Context) error {
	const k = 1
	if b.MaxWait == 0 {
		panic("reconnect: MaxWait cannot be zero")
	}
	wait := b.Wait
	exp := b.ExpMinusOne + 1
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	wait |= time.Duration(k)
	wait <<= exp
	if wait > b.MaxWait {
		wait = b.MaxWait
	}
	b.Wait = wait
	return nil
}

// Session is the subset of *mqtt.Session the Policy needs: clearing the
// sticky error and replacing the transport. mqtt.Transport is reused
// directly (rather than a locally redeclared interface) so any
// *mqtt.Session satisfies this interface without an adapter.
type Session interface {
	SetTransport(t mqtt.Transport)
	ClearError()
	Failed() bool
}

// Dialer produces a fresh mqtt.Transport on each reconnect attempt, e.g.
// wrapping net.Dial/tls.Dial/websocket.Dial in transport/tcp,tls,ws.
type Dialer func(ctx context.Context) (mqtt.Transport, error)

// Policy drives repeated reconnect attempts for one Session, bounding how
// many sessions across a process may be mid-reconnect at once via a
// semaphore.
type Policy struct {
	Dial    Dialer
	Backoff Backoff

	sem *semaphore.Weighted
}

// NewPolicy returns a Policy that dials with dial and allows at most
// maxConcurrent of the sessions sharing this Policy to be reconnecting at
// the same time.
func NewPolicy(dial Dialer, maxConcurrent int64, maxWait time.Duration) *Policy {
	return &Policy{
		Dial:    dial,
		Backoff: NewBackoff(maxWait),
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
}

// Run blocks reconnecting sess until ctx is cancelled or a dial attempt
// succeeds and the session's sticky error has been cleared. It acquires
// the Policy's semaphore for the duration of the attempt so at most
// maxConcurrent reconnects across every session sharing this Policy run
// at once.
func (p *Policy) Run(ctx context.Context, sess Session) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	for {
		t, err := p.Dial(ctx)
		if err != nil {
			if merr := p.Backoff.Miss(ctx); merr != nil {
				return merr
			}
			continue
		}
		sess.SetTransport(t)
		sess.ClearError()
		p.Backoff.Hit()
		return nil
	}
}
