package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gamelens/chessreview/review"
)

var evalCmd = &cobra.Command{
	Use:   "eval <fen>",
	Short: "Evaluate a single position",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	log := newLogger()

	session, err := newSession(log)
	if err != nil {
		return err
	}
	defer session.Dispose()

	fen := args[0]
	res, err := session.AnalyzePosition(cmd.Context(), fen, searchOptions())
	if err != nil {
		return err
	}

	// The engine scores from the side to move; show White's perspective.
	score := res.Score
	if fields := strings.Fields(fen); len(fields) >= 2 && fields[1] == "b" {
		score.Value = -score.Value
	}

	fmt.Printf("bestmove %s  eval %s\n", res.BestMove, review.FormatScore(score))
	if res.PV != "" {
		fmt.Printf("pv %s\n", res.PV)
	}
	return nil
}
