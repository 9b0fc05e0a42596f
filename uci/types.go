package uci

import "time"

// Protocol vocabulary. Only the handshake/search/result subset is spoken;
// every other inbound line is ignored.
const (
	cmdHandshake = "uci"
	ackHandshake = "uciok"
	cmdReady     = "isready"
	ackReady     = "readyok"
	cmdReset     = "ucinewgame"
	cmdStop      = "stop"

	bestMovePrefix = "bestmove"
)

// NullMove is returned when the engine's result line carried no move token.
const NullMove = "0000"

// ScoreType selects the interpretation of a Score's Value.
type ScoreType int

const (
	// Centipawns values are hundredths of a pawn, from the point of view
	// of the side to move in the searched position.
	Centipawns ScoreType = iota
	// Mate values count moves until forced mate; negative means the side
	// to move gets mated.
	Mate
)

// Score is the engine's evaluation of a position. Exactly one interpretation
// applies, selected by Type.
type Score struct {
	Type  ScoreType
	Value int
}

// AnalyzeOptions bounds a single search. Depth and MoveTime are mutually
// exclusive limiters; Depth wins when both are set. The zero value searches
// for the session's default move time.
type AnalyzeOptions struct {
	Depth    int
	MoveTime time.Duration
}

// AnalyzeResult is one finished search.
type AnalyzeResult struct {
	// BestMove is the engine's choice in long algebraic notation, or
	// NullMove when the result line was unparseable.
	BestMove string
	// Score is the last evaluation the search reported, zero centipawns
	// if the engine emitted no info line.
	Score Score
	// PV is the predicted continuation, empty when none was reported.
	PV string
}
