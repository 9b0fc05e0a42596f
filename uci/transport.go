package uci

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Transport is a line-oriented duplex channel to an engine. Lines() closes
// when the far side is gone; after that Send fails with ErrTransportClosed.
type Transport interface {
	Send(line string) error
	Lines() <-chan string
	Close() error
}

// procTransport runs the engine as a child process and speaks to it over
// stdin/stdout pipes.
type procTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	lines    chan string
	waitDone chan struct{}

	shutdownTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
	alive     atomic.Bool
}

func startProcTransport(binaryPath string, shutdownTimeout time.Duration) (*procTransport, error) {
	cmd := exec.Command(binaryPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &OpError{Op: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &OpError{Op: "stdout pipe", Err: err}
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, &OpError{Op: "start process", Err: err}
	}

	t := &procTransport{
		cmd:             cmd,
		stdin:           stdin,
		stdout:          stdout,
		lines:           make(chan string, 1024),
		waitDone:        make(chan struct{}),
		shutdownTimeout: shutdownTimeout,
	}
	t.alive.Store(true)

	go t.readLoop()
	go func() {
		_ = cmd.Wait()
		t.alive.Store(false)
		close(t.waitDone)
	}()

	return t, nil
}

func (t *procTransport) Send(line string) error {
	if !t.alive.Load() {
		return ErrTransportClosed
	}
	if _, err := io.WriteString(t.stdin, line+"\n"); err != nil {
		t.alive.Store(false)
		return &OpError{Op: "write command", Err: err}
	}
	return nil
}

func (t *procTransport) Lines() <-chan string {
	return t.lines
}

// Close asks the engine to quit and reaps the process, killing it if it
// ignores the request past the shutdown timeout.
func (t *procTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.Send("quit")
		t.alive.Store(false)
		_ = t.stdin.Close()

		select {
		case <-t.waitDone:
		case <-time.After(t.shutdownTimeout):
			if t.cmd.Process != nil {
				if killErr := t.cmd.Process.Kill(); killErr != nil {
					t.closeErr = &OpError{Op: "kill process", Err: killErr}
				}
			}
			<-t.waitDone
		}

		_ = t.stdout.Close()
	})
	return t.closeErr
}

func (t *procTransport) readLoop() {
	scanner := bufio.NewScanner(t.stdout)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, 1024*1024)

	for scanner.Scan() {
		t.lines <- strings.TrimSpace(scanner.Text())
	}
	close(t.lines)
}
