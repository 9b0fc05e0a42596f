package uci

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, cfg Config, tr Transport) *Session {
	t.Helper()
	if cfg.EnginePath == "" {
		cfg.EnginePath = "sh" // never spawned; the fake transport is injected
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	s.newTransport = func(validatedConfig) (Transport, error) { return tr, nil }
	t.Cleanup(s.Dispose)
	return s
}

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestInitRunsHandshakeSequence(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	require.NoError(t, s.Init(context.Background()))

	assert.Equal(t, []string{"uci", "isready", "ucinewgame", "isready"}, tr.sentLines())
}

func TestInitIsMemoized(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))

	assert.Equal(t, 1, countSent(tr, "uci"))
}

func TestInitConcurrentCallersShareOneHandshake(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Init(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, countSent(tr, "uci"))
}

func TestInitFailureClearsMemoAndRetries(t *testing.T) {
	tr := newFakeTransport()
	// First attempt: the engine never acknowledges the handshake.
	s := newTestSession(t, Config{HandshakeTimeout: 30 * time.Millisecond}, tr)

	err := s.Init(context.Background())
	require.Error(t, err)
	require.True(t, IsTimeout(err, "uciok"))

	// The transport stayed open; a retry completes against it.
	tr.setRespond(scriptEngine())
	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, 2, countSent(tr, "uci"))
}

func TestAnalyzePosition(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	res, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, "e2e4", res.BestMove)
	assert.Equal(t, Score{Type: Centipawns, Value: 34}, res.Score)
	assert.Equal(t, "e2e4 e7e5", res.PV)

	sent := tr.sentLines()
	require.Len(t, sent, 7)
	assert.Equal(t, "stop", sent[4])
	assert.Equal(t, "position fen "+startFEN, sent[5])
	assert.Equal(t, "go movetime 1000", sent[6])
}

func TestAnalyzePositionDepthTakesPrecedence(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	_, err := s.AnalyzePosition(context.Background(), startFEN,
		AnalyzeOptions{Depth: 14, MoveTime: 300 * time.Millisecond})
	require.NoError(t, err)

	sent := tr.sentLines()
	assert.Equal(t, "go depth 14", sent[len(sent)-1])
}

func TestAnalyzePositionMalformedResultLine(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine("bestmove"))
	s := newTestSession(t, Config{}, tr)

	res, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.NoError(t, err)

	// No move token and no info line: sentinel move, zero-centipawn score.
	assert.Equal(t, NullMove, res.BestMove)
	assert.Equal(t, Score{Type: Centipawns, Value: 0}, res.Score)
	assert.Empty(t, res.PV)
}

func TestAnalyzePositionRejectsBadFEN(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)

	_, err := s.AnalyzePosition(context.Background(), "8/8 w - - 0 1\nquit", AnalyzeOptions{})
	require.Error(t, err)
}

func TestAnalyzePositionDoesNotResolveBeforeResultLine(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(func(cmd string) []string {
		switch {
		case cmd == cmdHandshake:
			return []string{ackHandshake}
		case cmd == cmdReady:
			return []string{ackReady}
		case strings.HasPrefix(cmd, "go"):
			// Deepening output only; no terminator yet.
			return []string{"info depth 8 score cp 21 pv e2e4"}
		default:
			return nil
		}
	})
	s := newTestSession(t, Config{}, tr)

	done := make(chan AnalyzeResult, 1)
	go func() {
		res, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
		require.NoError(t, err)
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("analyze resolved before a bestmove line was observed")
	case <-time.After(50 * time.Millisecond):
	}

	tr.emit("bestmove e2e4")

	select {
	case res := <-done:
		assert.Equal(t, "e2e4", res.BestMove)
		assert.Equal(t, Score{Type: Centipawns, Value: 21}, res.Score)
	case <-time.After(time.Second):
		t.Fatal("analyze did not resolve after the bestmove line")
	}
}

func TestAnalyzePositionSearchTimeout(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(func(cmd string) []string {
		switch cmd {
		case cmdHandshake:
			return []string{ackHandshake}
		case cmdReady:
			return []string{ackReady}
		default:
			return nil // searches never answer
		}
	})
	s := newTestSession(t, Config{SearchTimeout: 30 * time.Millisecond}, tr)

	_, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.True(t, IsTimeout(err, "bestmove"))

	// Only that wait failed; the session keeps working.
	tr.setRespond(scriptEngine())
	res, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.BestMove)
}

func TestAnalyzePositionSerializesConcurrentCalls(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(scriptEngine())
	s := newTestSession(t, Config{}, tr)
	require.NoError(t, s.Init(context.Background()))

	fens := []string{
		startFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		"rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
	}

	var wg sync.WaitGroup
	for _, fen := range fens {
		wg.Add(1)
		go func(fen string) {
			defer wg.Done()
			_, err := s.AnalyzePosition(context.Background(), fen, AnalyzeOptions{})
			assert.NoError(t, err)
		}(fen)
	}
	wg.Wait()

	// After the 4 handshake commands, the wire must hold complete
	// stop/position/go triples: no interleaving between exchanges.
	sent := tr.sentLines()[4:]
	require.Len(t, sent, 3*len(fens))
	for i := 0; i < len(sent); i += 3 {
		assert.Equal(t, "stop", sent[i])
		assert.True(t, strings.HasPrefix(sent[i+1], "position fen "), "unexpected command %q", sent[i+1])
		assert.True(t, strings.HasPrefix(sent[i+2], "go "), "unexpected command %q", sent[i+2])
	}
}

func TestAnalyzeRejectsWhenQueueIsFull(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(func(cmd string) []string {
		switch cmd {
		case cmdHandshake:
			return []string{ackHandshake}
		case cmdReady:
			return []string{ackReady}
		default:
			return nil // searches hang so the queue backs up
		}
	})
	s := newTestSession(t, Config{QueueSize: 1}, tr)

	errCh := make(chan error, 2)
	analyze := func() {
		_, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
		errCh <- err
	}

	go analyze()
	// First exchange on the wire: the worker is busy with it.
	require.Eventually(t, func() bool {
		return countSentPrefix(tr, "go ") == 1
	}, time.Second, 5*time.Millisecond)

	go analyze()
	// Second call holds the single queue slot.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.exchanges) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.ErrorIs(t, err, ErrQueueFull)

	s.Dispose()
	require.ErrorIs(t, <-errCh, ErrSessionClosed)
	require.ErrorIs(t, <-errCh, ErrSessionClosed)
}

func TestDisposeRejectsPendingRequests(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(func(cmd string) []string {
		switch cmd {
		case cmdHandshake:
			return []string{ackHandshake}
		case cmdReady:
			return []string{ackReady}
		default:
			return nil // searches hang until dispose
		}
	})
	s := newTestSession(t, Config{}, tr)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
		errCh <- err
	}()

	// Wait for the exchange to reach the wire.
	require.Eventually(t, func() bool {
		return countSentPrefix(tr, "go ") == 1
	}, time.Second, 5*time.Millisecond)

	s.Dispose()

	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, ErrSessionClosed))
	case <-time.After(time.Second):
		t.Fatal("pending request was not rejected")
	}
}

func TestDisposeThenInitStartsFreshTransport(t *testing.T) {
	first := newFakeTransport()
	first.setRespond(scriptEngine())
	second := newFakeTransport()
	second.setRespond(scriptEngine())

	s, err := NewSession(Config{EnginePath: "sh"})
	require.NoError(t, err)
	transports := []Transport{first, second}
	s.newTransport = func(validatedConfig) (Transport, error) {
		tr := transports[0]
		transports = transports[1:]
		return tr, nil
	}
	t.Cleanup(s.Dispose)

	require.NoError(t, s.Init(context.Background()))
	s.Dispose()
	require.NoError(t, s.Init(context.Background()))

	assert.Equal(t, 1, countSent(first, "uci"))
	assert.Equal(t, 1, countSent(second, "uci"))
}

func TestAnalyzePositionAfterContextCancelDropsStaleResult(t *testing.T) {
	tr := newFakeTransport()
	tr.setRespond(func(cmd string) []string {
		switch cmd {
		case cmdHandshake:
			return []string{ackHandshake}
		case cmdReady:
			return []string{ackReady}
		default:
			return nil
		}
	})
	s := newTestSession(t, Config{}, tr)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.AnalyzePosition(ctx, startFEN, AnalyzeOptions{})
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return countSentPrefix(tr, "go ") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The abandoned search completing later must not disturb the next call.
	tr.emit("bestmove d2d4")
	tr.setRespond(scriptEngine())
	res, err := s.AnalyzePosition(context.Background(), startFEN, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.BestMove)
}

func countSent(tr *fakeTransport, cmd string) int {
	n := 0
	for _, line := range tr.sentLines() {
		if line == cmd {
			n++
		}
	}
	return n
}

func countSentPrefix(tr *fakeTransport, prefix string) int {
	n := 0
	for _, line := range tr.sentLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}
