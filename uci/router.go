package uci

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type waitResult struct {
	line string
	err  error
}

// waiter is one registered wait for a matching inbound line. It settles
// exactly once: on first predicate match, on deadline expiry, on explicit
// abandonment, or on transport close, whichever comes first. The settled
// flag is guarded by the router mutex.
type waiter struct {
	pred    func(string) bool
	token   string
	done    chan waitResult
	timer   *time.Timer
	settled bool
}

// wait blocks until the waiter settles.
func (w *waiter) wait() (string, error) {
	res := <-w.done
	return res.line, res.err
}

// router owns the transport. It sends raw commands, dispatches every inbound
// line to all matching waiters, and mines every line for score/PV side data
// whether or not anyone is waiting. The router has no notion of request
// identity; that lives a layer up in Session.
type router struct {
	tr  Transport
	log zerolog.Logger

	mu      sync.Mutex
	waiters []*waiter
	closed  bool

	lastScore *Score
	lastPV    string

	done chan struct{}
}

func newRouter(tr Transport, log zerolog.Logger) *router {
	r := &router{tr: tr, log: log, done: make(chan struct{})}
	go r.dispatch()
	return r
}

func (r *router) send(cmd string) error {
	r.log.Debug().Str("cmd", cmd).Msg("engine send")
	return r.tr.Send(cmd)
}

// expect registers a waiter. Register before sending the triggering command:
// a fast engine must not be able to answer into a gap.
func (r *router) expect(pred func(string) bool, timeout time.Duration, token string) *waiter {
	w := &waiter{pred: pred, token: token, done: make(chan waitResult, 1)}

	r.mu.Lock()
	if r.closed {
		w.settled = true
		r.mu.Unlock()
		w.done <- waitResult{err: ErrTransportClosed}
		return w
	}
	r.waiters = append(r.waiters, w)
	w.timer = time.AfterFunc(timeout, func() { r.expire(w, timeout) })
	r.mu.Unlock()

	return w
}

// abandon settles a waiter that can no longer be fulfilled, typically
// because the command that was supposed to trigger it never went out.
func (r *router) abandon(w *waiter, err error) {
	r.mu.Lock()
	if w.settled {
		r.mu.Unlock()
		return
	}
	w.settled = true
	if w.timer != nil {
		w.timer.Stop()
	}
	r.remove(w)
	r.mu.Unlock()

	w.done <- waitResult{err: err}
}

// expire rejects a waiter whose deadline passed before a match. Only this
// wait fails: the transport stays open and other waiters are untouched.
func (r *router) expire(w *waiter, timeout time.Duration) {
	r.mu.Lock()
	if w.settled {
		r.mu.Unlock()
		return
	}
	w.settled = true
	r.remove(w)
	r.mu.Unlock()

	r.log.Debug().Str("token", w.token).Dur("after", timeout).Msg("wait expired")
	w.done <- waitResult{err: &TimeoutError{Token: w.token, After: timeout}}
}

// remove drops w from the registry. Caller holds r.mu.
func (r *router) remove(w *waiter) {
	for i, other := range r.waiters {
		if other == w {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return
		}
	}
}

func (r *router) dispatch() {
	defer close(r.done)

	for line := range r.tr.Lines() {
		r.route(line)
	}

	// Transport EOF: every outstanding wait fails, future expects fail fast.
	r.mu.Lock()
	r.closed = true
	pending := r.waiters
	r.waiters = nil
	for _, w := range pending {
		if w.settled {
			continue
		}
		w.settled = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.done <- waitResult{err: ErrTransportClosed}
	}
	r.mu.Unlock()
}

// route mines one inbound line for side data and settles every waiter whose
// predicate matches it, not just the first.
func (r *router) route(line string) {
	r.mu.Lock()

	if update, ok := parseInfoLine(line); ok {
		// Engines report deepening iterations; the latest line wins.
		if update.Score != nil {
			r.lastScore = update.Score
		}
		if update.PV != "" {
			r.lastPV = update.PV
		}
	}

	var matched []*waiter
	kept := r.waiters[:0]
	for _, w := range r.waiters {
		if !w.settled && w.pred(line) {
			w.settled = true
			if w.timer != nil {
				w.timer.Stop()
			}
			matched = append(matched, w)
			continue
		}
		kept = append(kept, w)
	}
	r.waiters = kept
	r.mu.Unlock()

	for _, w := range matched {
		w.done <- waitResult{line: line}
	}
}

// resetCache clears the mined score/PV ahead of a new exchange.
func (r *router) resetCache() {
	r.mu.Lock()
	r.lastScore = nil
	r.lastPV = ""
	r.mu.Unlock()
}

// snapshot returns the mined score, defaulting to zero centipawns when the
// search produced no info line, and the mined PV.
func (r *router) snapshot() (Score, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score := Score{Type: Centipawns}
	if r.lastScore != nil {
		score = *r.lastScore
	}
	return score, r.lastPV
}

// closeTransport shuts the transport down and waits for the dispatch loop,
// which settles any remaining waiters on the way out.
func (r *router) closeTransport() error {
	err := r.tr.Close()
	<-r.done
	return err
}
