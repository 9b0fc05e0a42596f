package review

import (
	"context"
	"fmt"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/gamelens/chessreview/uci"
)

// Analyzer is the slice of the engine session the reviewer needs. It is
// satisfied by *uci.Session.
type Analyzer interface {
	AnalyzePosition(ctx context.Context, fen string, opts uci.AnalyzeOptions) (uci.AnalyzeResult, error)
}

// MoveReview is the verdict on one played ply.
type MoveReview struct {
	Ply     int // 0-based
	Color   chess.Color
	MoveUCI string
	BestUCI string
	Grade   Grade
	DeltaCP int
	// ScoreAfter evaluates the position the move produced, from White's
	// perspective.
	ScoreAfter uci.Score
}

// Summary aggregates one reviewed game.
type Summary struct {
	Counts map[Grade]int
	// ACPL is the average centipawn loss per side.
	ACPL map[chess.Color]int
}

// Config configures a Reviewer.
type Config struct {
	Analyzer Analyzer
	// Policy defaults to DefaultPolicy when left zero.
	Policy Policy
	// Search is the fixed budget used for every evaluation in the game.
	// One budget, three searches per ply: before the move, after the
	// engine's preferred reply, after the played move.
	Search uci.AnalyzeOptions
	Logger zerolog.Logger
}

// Reviewer walks a game and grades every ply.
type Reviewer struct {
	an   Analyzer
	pol  Policy
	opts uci.AnalyzeOptions
	log  zerolog.Logger
}

func New(cfg Config) (*Reviewer, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("review: analyzer is required")
	}
	pol := cfg.Policy
	if pol == (Policy{}) {
		pol = DefaultPolicy()
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}
	return &Reviewer{an: cfg.Analyzer, pol: pol, opts: cfg.Search, log: cfg.Logger}, nil
}

// Game grades every ply of the game. Evaluations are requested one ply at a
// time; the session underneath serializes them on the wire anyway.
func (r *Reviewer) Game(ctx context.Context, game *chess.Game) ([]MoveReview, Summary, error) {
	moves := game.Moves()
	positions := game.Positions()

	reviews := make([]MoveReview, 0, len(moves))
	for i, move := range moves {
		rev, err := r.reviewPly(ctx, i, positions[i], positions[i+1], move)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("review: ply %d: %w", i+1, err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, summarize(reviews), nil
}

func (r *Reviewer) reviewPly(ctx context.Context, ply int, pos, played *chess.Position, move *chess.Move) (MoveReview, error) {
	mover := pos.Turn()

	before, err := r.an.AnalyzePosition(ctx, pos.String(), r.opts)
	if err != nil {
		return MoveReview{}, err
	}
	beforeWhite := whitePOV(before.Score, pos.Turn())

	// The engine's preferred reply, applied hypothetically. When the best
	// move cannot be decoded against the position, fall back to the
	// pre-move search score: it already evaluates the preferred line.
	bestAfterWhite := beforeWhite
	mv, decodeErr := chess.UCINotation{}.Decode(pos, before.BestMove)
	if decodeErr == nil {
		bestPos := pos.Update(mv)
		bestRes, analyzeErr := r.an.AnalyzePosition(ctx, bestPos.String(), r.opts)
		if analyzeErr != nil {
			return MoveReview{}, analyzeErr
		}
		bestAfterWhite = whitePOV(bestRes.Score, bestPos.Turn())
	}

	playedRes, err := r.an.AnalyzePosition(ctx, played.String(), r.opts)
	if err != nil {
		return MoveReview{}, err
	}
	playedWhite := whitePOV(playedRes.Score, played.Turn())

	// The mover's own half-move can only gain material; an offered piece
	// costs something only once the opponent takes it. Measure the swing
	// past the engine's expected reply so sacrifices register.
	material := materialSwingCP(pos, played, playedRes.BestMove, mover)

	in := Input{
		Before:      beforeWhite,
		BestAfter:   bestAfterWhite,
		PlayedAfter: playedWhite,
		Mover:       mover,
		AllowsMate:  allowsMateAgainst(playedWhite, mover, r.pol),
		IsSacrifice: material <= -r.pol.SacrificeMaterialCP,
		MaterialCP:  material,
	}
	out := Classify(in, r.pol)

	r.log.Debug().
		Int("ply", ply+1).
		Str("move", move.String()).
		Str("grade", out.Grade.String()).
		Int("delta_cp", out.DeltaCP).
		Msg("ply reviewed")

	return MoveReview{
		Ply:        ply,
		Color:      mover,
		MoveUCI:    move.String(),
		BestUCI:    before.BestMove,
		Grade:      out.Grade,
		DeltaCP:    out.DeltaCP,
		ScoreAfter: playedWhite,
	}, nil
}

// whitePOV re-signs an engine evaluation, which is reported from the side
// to move, onto White's fixed perspective.
func whitePOV(s uci.Score, turn chess.Color) uci.Score {
	if turn == chess.White {
		return s
	}
	return uci.Score{Type: s.Type, Value: -s.Value}
}

// allowsMateAgainst reports a forced mate against the mover in the position
// the played move produced.
func allowsMateAgainst(playedAfterWhite uci.Score, mover chess.Color, pol Policy) bool {
	return playedAfterWhite.Type == uci.Mate && moverCP(playedAfterWhite, mover, pol) < 0
}

func summarize(reviews []MoveReview) Summary {
	s := Summary{
		Counts: make(map[Grade]int),
		ACPL:   make(map[chess.Color]int),
	}
	lossSum := map[chess.Color]int{}
	plies := map[chess.Color]int{}
	for _, rev := range reviews {
		s.Counts[rev.Grade]++
		lossSum[rev.Color] += rev.DeltaCP
		plies[rev.Color]++
	}
	for color, n := range plies {
		if n > 0 {
			s.ACPL[color] = lossSum[color] / n
		}
	}
	return s
}
