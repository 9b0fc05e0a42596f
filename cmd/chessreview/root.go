package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gamelens/chessreview/uci"
)

var (
	flagEngine   string
	flagDepth    int
	flagMoveTime time.Duration
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "chessreview",
	Short: "Grade chess games with a UCI engine",
	Long: `chessreview drives an external UCI engine to evaluate positions and
grades every played move on a quality ladder from blunder to brilliant.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "path to the UCI engine binary (default: stockfish on PATH)")
	rootCmd.PersistentFlags().IntVar(&flagDepth, "depth", 0, "search depth per position (overrides --movetime)")
	rootCmd.PersistentFlags().DurationVar(&flagMoveTime, "movetime", 0, "search time per position")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log engine wire traffic")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newSession(log zerolog.Logger) (*uci.Session, error) {
	return uci.NewSession(uci.Config{
		EnginePath: flagEngine,
		Logger:     log,
	})
}

func searchOptions() uci.AnalyzeOptions {
	return uci.AnalyzeOptions{Depth: flagDepth, MoveTime: flagMoveTime}
}
