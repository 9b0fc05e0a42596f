package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/notnil/chess"
	"github.com/spf13/cobra"

	"github.com/gamelens/chessreview/review"
)

var flagPolicy string

var reviewCmd = &cobra.Command{
	Use:   "review <game.pgn>",
	Short: "Grade every move of a PGN game",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&flagPolicy, "policy", "", "YAML file overriding the grading thresholds")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	log := newLogger()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	pgn, err := chess.PGN(f)
	if err != nil {
		return fmt.Errorf("read pgn %s: %w", args[0], err)
	}
	game := chess.NewGame(pgn)

	pol := review.DefaultPolicy()
	if flagPolicy != "" {
		if pol, err = review.LoadPolicy(flagPolicy); err != nil {
			return err
		}
	}

	session, err := newSession(log)
	if err != nil {
		return err
	}
	defer session.Dispose()

	reviewer, err := review.New(review.Config{
		Analyzer: session,
		Policy:   pol,
		Search:   searchOptions(),
		Logger:   log,
	})
	if err != nil {
		return err
	}

	reviews, summary, err := reviewer.Game(cmd.Context(), game)
	if err != nil {
		return err
	}

	printReviews(reviews)
	printSummary(summary)
	return nil
}

func printReviews(reviews []review.MoveReview) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "move\tplayed\tgrade\tloss\tbest\teval")
	for _, rev := range reviews {
		number := fmt.Sprintf("%d.", rev.Ply/2+1)
		if rev.Color == chess.Black {
			number = fmt.Sprintf("%d...", rev.Ply/2+1)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dcp\t%s\t%s\n",
			number, rev.MoveUCI, rev.Grade, rev.DeltaCP, rev.BestUCI, review.FormatScore(rev.ScoreAfter))
	}
	w.Flush()
}

func printSummary(summary review.Summary) {
	fmt.Println()
	for g := review.Brilliant; g >= review.Blunder; g-- {
		if n := summary.Counts[g]; n > 0 {
			fmt.Printf("%-10s %d\n", g.String(), n)
		}
	}
	fmt.Printf("avg centipawn loss: white %d, black %d\n",
		summary.ACPL[chess.White], summary.ACPL[chess.Black])
}
