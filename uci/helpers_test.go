package uci

import (
	"strings"
	"sync"
)

// fakeTransport is a scripted in-memory transport. Sent commands are
// recorded; the respond hook, when set, answers each command with inbound
// lines synchronously.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []string
	closed  bool
	respond func(cmd string) []string

	lines chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{lines: make(chan string, 64)}
}

func (t *fakeTransport) Send(line string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.sent = append(t.sent, line)
	respond := t.respond
	t.mu.Unlock()

	if respond != nil {
		for _, out := range respond(line) {
			t.lines <- out
		}
	}
	return nil
}

func (t *fakeTransport) Lines() <-chan string {
	return t.lines
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.lines)
	}
	return nil
}

func (t *fakeTransport) emit(lines ...string) {
	for _, line := range lines {
		t.lines <- line
	}
}

func (t *fakeTransport) sentLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *fakeTransport) setRespond(respond func(cmd string) []string) {
	t.mu.Lock()
	t.respond = respond
	t.mu.Unlock()
}

// scriptEngine answers like a minimal engine: handshake, readiness, and a
// fixed search result for every go command.
func scriptEngine(searchLines ...string) func(cmd string) []string {
	if len(searchLines) == 0 {
		searchLines = []string{
			"info depth 12 score cp 34 pv e2e4 e7e5",
			"bestmove e2e4 ponder e7e5",
		}
	}
	return func(cmd string) []string {
		switch {
		case cmd == cmdHandshake:
			return []string{"id name fake engine", ackHandshake}
		case cmd == cmdReady:
			return []string{ackReady}
		case strings.HasPrefix(cmd, "go"):
			return searchLines
		default:
			return nil
		}
	}
}
