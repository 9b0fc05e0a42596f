// Package uci drives an external UCI chess engine over its line protocol:
// handshake, serialized search exchanges, and per-wait timeouts. Only the
// handshake/search/result subset of the protocol is spoken; everything else
// the engine prints is ignored.
package uci

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// initAttempt memoizes one in-flight handshake so concurrent Init callers
// share it. err is valid once done is closed.
type initAttempt struct {
	done chan struct{}
	err  error
}

type exchange struct {
	id   uint64
	fen  string
	opts AnalyzeOptions
}

type exchangeResult struct {
	res AnalyzeResult
	err error
}

// Session is the caller-facing handle to one engine process. It owns lazy
// transport creation, the one-time handshake, id-keyed pending-request
// bookkeeping, and a FIFO worker so only one exchange is ever on the wire:
// the engine has no reentrant search, and overlapping position/go pairs
// would corrupt which result belongs to which FEN.
type Session struct {
	cfg validatedConfig

	mu       sync.Mutex
	rt       *router
	ready    bool
	inflight *initAttempt

	exchanges  chan exchange
	workerDone chan struct{}

	nextID  atomic.Uint64
	pending map[uint64]chan exchangeResult

	// newTransport is swapped by tests for a scripted transport.
	newTransport func(validatedConfig) (Transport, error)
}

// NewSession validates the configuration and returns a session. No process
// is spawned until the first Init or AnalyzePosition.
func NewSession(cfg Config) (*Session, error) {
	normalized, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:     normalized,
		pending: make(map[uint64]chan exchangeResult),
		newTransport: func(vc validatedConfig) (Transport, error) {
			return startProcTransport(vc.binaryPath, vc.shutdownTimeout)
		},
	}, nil
}

// Init performs the engine handshake once per session lifetime. It is
// idempotent and single-flight: concurrent callers share one in-progress
// handshake, and a failed handshake clears the memo so the next call
// retries from scratch.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	if s.inflight != nil {
		attempt := s.inflight
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &initAttempt{done: make(chan struct{})}
	s.inflight = attempt
	rt, err := s.ensureRouterLocked()
	s.mu.Unlock()

	if err == nil {
		err = s.handshake(rt)
	}

	s.mu.Lock()
	attempt.err = err
	if s.inflight == attempt {
		s.inflight = nil
	}
	if err == nil && s.rt == rt {
		s.ready = true
	}
	s.mu.Unlock()

	close(attempt.done)
	return err
}

// ensureRouterLocked lazily creates the transport, router and exchange
// worker. Caller holds s.mu.
func (s *Session) ensureRouterLocked() (*router, error) {
	if s.rt != nil {
		return s.rt, nil
	}

	tr, err := s.newTransport(s.cfg)
	if err != nil {
		return nil, &OpError{Op: "open transport", Err: err}
	}

	s.rt = newRouter(tr, s.cfg.logger)
	s.exchanges = make(chan exchange, s.cfg.queueSize)
	s.workerDone = make(chan struct{})
	go s.worker(s.rt, s.exchanges, s.workerDone)
	return s.rt, nil
}

// handshake runs the fixed startup sequence: handshake-start, readiness
// probe, reset, one more readiness probe. Each step registers its waiter
// before the command goes out.
func (s *Session) handshake(rt *router) error {
	if err := s.exchangeAck(rt, cmdHandshake, ackHandshake, s.cfg.handshakeTimeout); err != nil {
		return &OpError{Op: "handshake", Err: err}
	}
	if err := s.exchangeAck(rt, cmdReady, ackReady, s.cfg.readyTimeout); err != nil {
		return &OpError{Op: "readiness", Err: err}
	}
	if err := rt.send(cmdReset); err != nil {
		return &OpError{Op: "reset", Err: err}
	}
	if err := s.exchangeAck(rt, cmdReady, ackReady, s.cfg.readyTimeout); err != nil {
		return &OpError{Op: "readiness", Err: err}
	}
	return nil
}

func (s *Session) exchangeAck(rt *router, cmd, ack string, timeout time.Duration) error {
	w := rt.expect(func(line string) bool { return line == ack }, timeout, ack)
	if err := rt.send(cmd); err != nil {
		rt.abandon(w, err)
		return err
	}
	_, err := w.wait()
	return err
}

// AnalyzePosition evaluates one FEN. Calls may overlap freely: each is
// queued behind prior calls and executed alone against the engine. The
// queue is bounded by Config.QueueSize; a call that arrives with the queue
// full fails immediately with ErrQueueFull rather than blocking. The
// context cancels only this caller's wait, not the exchange itself; the
// stop at the head of the next exchange keeps the engine from burning
// cycles on an abandoned search.
func (s *Session) AnalyzePosition(ctx context.Context, fen string, opts AnalyzeOptions) (AnalyzeResult, error) {
	normalized, err := normalizeFEN(fen)
	if err != nil {
		return AnalyzeResult{}, err
	}

	if err := s.Init(ctx); err != nil {
		return AnalyzeResult{}, err
	}

	s.mu.Lock()
	if s.rt == nil {
		s.mu.Unlock()
		return AnalyzeResult{}, ErrSessionClosed
	}
	id := s.nextID.Add(1)
	resCh := make(chan exchangeResult, 1)
	s.pending[id] = resCh
	select {
	case s.exchanges <- exchange{id: id, fen: normalized, opts: opts}:
	default:
		delete(s.pending, id)
		s.mu.Unlock()
		return AnalyzeResult{}, ErrQueueFull
	}
	s.mu.Unlock()

	select {
	case r := <-resCh:
		return r.res, r.err
	case <-ctx.Done():
		// The exchange may still run; its result is dropped on settle.
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return AnalyzeResult{}, ctx.Err()
	}
}

// worker services the exchange FIFO: one exchange fully sent and settled
// before the next one touches the wire.
func (s *Session) worker(rt *router, exchanges <-chan exchange, done chan<- struct{}) {
	defer close(done)
	for ex := range exchanges {
		res, err := s.runExchange(rt, ex)
		s.settle(ex.id, exchangeResult{res: res, err: err})
	}
}

func (s *Session) runExchange(rt *router, ex exchange) (AnalyzeResult, error) {
	rt.resetCache()

	// A stale search from an abandoned exchange may still be running.
	if err := rt.send(cmdStop); err != nil {
		return AnalyzeResult{}, err
	}
	if err := rt.send("position fen " + ex.fen); err != nil {
		return AnalyzeResult{}, err
	}

	w := rt.expect(isBestMove, s.cfg.searchBudget(ex.opts), bestMovePrefix)
	if err := rt.send(goCommand(ex.opts, s.cfg.defaultMoveTime)); err != nil {
		rt.abandon(w, err)
		return AnalyzeResult{}, err
	}

	line, err := w.wait()
	if err != nil {
		return AnalyzeResult{}, &OpError{Op: "search", Err: err}
	}

	score, pv := rt.snapshot()
	return AnalyzeResult{BestMove: parseBestMove(line), Score: score, PV: pv}, nil
}

func (s *Session) settle(id uint64, r exchangeResult) {
	s.mu.Lock()
	resCh, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if ok {
		resCh <- r
	}
}

// Dispose terminates the transport, rejects every still-pending request
// with ErrSessionClosed, and resets all bookkeeping so a subsequent Init
// performs a fresh handshake on a new transport.
func (s *Session) Dispose() {
	s.mu.Lock()
	rt := s.rt
	exchanges := s.exchanges
	workerDone := s.workerDone
	rejected := s.pending
	s.rt = nil
	s.exchanges = nil
	s.workerDone = nil
	s.pending = make(map[uint64]chan exchangeResult)
	s.ready = false
	s.inflight = nil
	s.mu.Unlock()

	for _, resCh := range rejected {
		resCh <- exchangeResult{err: ErrSessionClosed}
	}

	if rt != nil {
		if err := rt.closeTransport(); err != nil {
			s.cfg.logger.Debug().Err(err).Msg("transport close")
		}
	}
	if exchanges != nil {
		close(exchanges)
		<-workerDone
	}
}

func goCommand(opts AnalyzeOptions, defaultMove time.Duration) string {
	if opts.Depth > 0 {
		return "go depth " + strconv.Itoa(opts.Depth)
	}
	moveTime := opts.MoveTime
	if moveTime <= 0 {
		moveTime = defaultMove
	}
	millis := int(moveTime.Milliseconds())
	if millis < 1 {
		millis = 1
	}
	return "go movetime " + strconv.Itoa(millis)
}
