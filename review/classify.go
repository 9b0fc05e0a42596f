// Package review grades played chess moves against a reference engine's
// preferred alternatives. The classifier itself is a pure function over
// three evaluations; the Reviewer drives an engine session to obtain them.
package review

import (
	"fmt"

	"github.com/notnil/chess"

	"github.com/gamelens/chessreview/uci"
)

// Grade ranks a played move, worst to best. The numeric order is what the
// material floor relies on: flooring only ever pulls a grade down toward
// Mistake, never up.
type Grade int

const (
	Blunder Grade = iota
	Mistake
	Inaccuracy
	Good
	Excellent
	Best
	Brilliant
)

func (g Grade) String() string {
	switch g {
	case Blunder:
		return "blunder"
	case Mistake:
		return "mistake"
	case Inaccuracy:
		return "inaccuracy"
	case Good:
		return "good"
	case Excellent:
		return "excellent"
	case Best:
		return "best"
	case Brilliant:
		return "brilliant"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Input is everything the classifier consumes for one played move. The
// three evaluations are given from White's fixed perspective; the
// classifier re-signs them onto the mover's own perspective before any
// subtraction. (The conversion from the engine's side-to-move perspective
// to White's happens where the engine output is received, since only that
// layer knows whose turn each searched position was.)
type Input struct {
	// Before evaluates the position the mover faced.
	Before uci.Score
	// BestAfter evaluates the position reached by the engine's preferred
	// move.
	BestAfter uci.Score
	// PlayedAfter evaluates the position reached by the move actually
	// played.
	PlayedAfter uci.Score

	// Mover is the side whose move is being judged.
	Mover chess.Color

	// AllowsMate marks a move that gives the opponent a forced mate.
	AllowsMate bool
	// IsSacrifice marks a deliberate material offer, making the move a
	// Brilliant candidate.
	IsSacrifice bool
	// MaterialCP is the mover's immediate material swing in centipawns,
	// negative when material was lost.
	MaterialCP int
}

// Output is the verdict: a grade and the centipawn loss behind it.
// DeltaCP is never negative.
type Output struct {
	Grade   Grade
	DeltaCP int
}

// Classify grades one played move. Pure: same input, same output.
func Classify(in Input, pol Policy) Output {
	before := moverCP(in.Before, in.Mover, pol)
	best := moverCP(in.BestAfter, in.Mover, pol)
	played := moverCP(in.PlayedAfter, in.Mover, pol)

	delta := best - played
	if delta < 0 {
		delta = 0
	}

	grade := baseGrade(delta, pol)

	// Overrides, in order. Allowing a forced mate trumps everything.
	if in.AllowsMate {
		grade = Blunder
	} else if in.MaterialCP <= -pol.SacrificeMaterialCP {
		if delta > pol.MaterialBlunderDeltaCP {
			grade = Blunder
		} else if delta >= pol.MaterialFloorDeltaCP && grade > Mistake {
			grade = Mistake
		}
	}

	if (grade == Best || grade == Excellent) && in.IsSacrifice {
		if played >= pol.BrilliantGoodCP || played-before >= pol.BrilliantGainCP {
			grade = Brilliant
		}
	}

	return Output{Grade: grade, DeltaCP: delta}
}

func baseGrade(delta int, pol Policy) Grade {
	switch {
	case delta <= pol.BestMaxCP:
		return Best
	case delta <= pol.ExcellentMaxCP:
		return Excellent
	case delta <= pol.GoodMaxCP:
		return Good
	case delta <= pol.InaccuracyMaxCP:
		return Inaccuracy
	case delta <= pol.MistakeMaxCP:
		return Mistake
	default:
		return Blunder
	}
}

// moverCP projects a White-perspective evaluation onto the mover's own
// perspective, collapsing mate scores to a fixed signed magnitude.
func moverCP(s uci.Score, mover chess.Color, pol Policy) int {
	var v int
	switch s.Type {
	case uci.Centipawns:
		v = s.Value
	case uci.Mate:
		v = pol.MateCP
		if s.Value < 0 {
			v = -pol.MateCP
		}
	}
	if mover == chess.Black {
		v = -v
	}
	return v
}

// FormatScore renders an evaluation the way a review surface shows it:
// signed pawns with two decimals ("+0.50" for 50 centipawns), or a mate
// distance ("#3", "#-3").
func FormatScore(s uci.Score) string {
	if s.Type == uci.Mate {
		return fmt.Sprintf("#%d", s.Value)
	}
	return fmt.Sprintf("%+.2f", float64(s.Value)/100)
}
