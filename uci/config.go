package uci

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadyTimeout     = 5 * time.Second
	defaultDepthTimeout     = 60 * time.Second
	defaultMoveTime         = time.Second
	defaultShutdownTimeout  = 5 * time.Second
	defaultQueueSize        = 64

	// searchGrace pads a movetime-bounded wait: the engine needs a moment
	// past its own budget to wrap up and print the result line.
	searchGrace = 2 * time.Second
)

// Config configures a Session. The zero value is usable when a stockfish
// binary is on PATH.
type Config struct {
	// EnginePath is the engine binary. Empty falls back to "stockfish"
	// on PATH.
	EnginePath string

	// HandshakeTimeout bounds the wait for the handshake acknowledgement.
	HandshakeTimeout time.Duration
	// ReadyTimeout bounds each readiness-probe wait.
	ReadyTimeout time.Duration
	// SearchTimeout caps every search wait. Zero derives the budget from
	// the search limit itself: movetime plus a grace period, or a fixed
	// ceiling for depth-bounded searches.
	SearchTimeout time.Duration
	// ShutdownTimeout bounds how long Dispose waits before killing the
	// engine process.
	ShutdownTimeout time.Duration

	// DefaultMoveTime is the search budget used when AnalyzeOptions set
	// neither depth nor movetime.
	DefaultMoveTime time.Duration

	// QueueSize caps how many exchanges may be queued behind the one in
	// flight before AnalyzePosition fails with ErrQueueFull.
	QueueSize int

	// Logger receives debug-level wire traffic. The zero value is silent.
	Logger zerolog.Logger
}

type validatedConfig struct {
	binaryPath       string
	handshakeTimeout time.Duration
	readyTimeout     time.Duration
	searchTimeout    time.Duration
	shutdownTimeout  time.Duration
	defaultMoveTime  time.Duration
	queueSize        int
	logger           zerolog.Logger
}

func validateConfig(cfg Config) (validatedConfig, error) {
	for name, d := range map[string]time.Duration{
		"handshake timeout": cfg.HandshakeTimeout,
		"ready timeout":     cfg.ReadyTimeout,
		"search timeout":    cfg.SearchTimeout,
		"shutdown timeout":  cfg.ShutdownTimeout,
		"default move time": cfg.DefaultMoveTime,
	} {
		if d < 0 {
			return validatedConfig{}, fmt.Errorf("%s must be >= 0", name)
		}
	}
	if cfg.QueueSize < 0 {
		return validatedConfig{}, fmt.Errorf("queue size must be >= 0")
	}

	handshakeTimeout := cfg.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout == 0 {
		readyTimeout = defaultReadyTimeout
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	defaultMove := cfg.DefaultMoveTime
	if defaultMove == 0 {
		defaultMove = defaultMoveTime
	}
	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = defaultQueueSize
	}

	binaryPath, err := resolveBinaryPath(cfg.EnginePath)
	if err != nil {
		return validatedConfig{}, err
	}

	return validatedConfig{
		binaryPath:       binaryPath,
		handshakeTimeout: handshakeTimeout,
		readyTimeout:     readyTimeout,
		searchTimeout:    cfg.SearchTimeout,
		shutdownTimeout:  shutdownTimeout,
		defaultMoveTime:  defaultMove,
		queueSize:        queueSize,
		logger:           cfg.Logger,
	}, nil
}

// searchBudget picks the wait deadline for one search exchange.
func (c validatedConfig) searchBudget(opts AnalyzeOptions) time.Duration {
	if c.searchTimeout > 0 {
		return c.searchTimeout
	}
	if opts.Depth > 0 {
		return defaultDepthTimeout
	}
	moveTime := opts.MoveTime
	if moveTime <= 0 {
		moveTime = c.defaultMoveTime
	}
	return moveTime + searchGrace
}

func resolveBinaryPath(configuredPath string) (string, error) {
	trimmed := strings.TrimSpace(configuredPath)
	if trimmed != "" {
		if found, err := exec.LookPath(trimmed); err == nil {
			return found, nil
		}
	}

	if found, err := exec.LookPath("stockfish"); err == nil {
		return found, nil
	}

	if trimmed == "" {
		return "", fmt.Errorf("engine binary not found in PATH")
	}
	return "", fmt.Errorf("engine binary not found at %q and default lookup failed", trimmed)
}

func normalizeFEN(fen string) (string, error) {
	trimmed := strings.TrimSpace(fen)
	if trimmed == "" {
		return "", fmt.Errorf("fen must not be empty")
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return "", fmt.Errorf("fen must be single-line")
	}
	return trimmed, nil
}
