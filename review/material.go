package review

import "github.com/notnil/chess"

var pieceValueCP = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 300,
	chess.Bishop: 300,
	chess.Rook:   500,
	chess.Queen:  900,
}

// materialSwingCP is the mover's material change across their move, in
// centipawns, measured after the opponent's expected reply: the mover's own
// half-move can never lose material, so an offer counts only once the reply
// realizes it. An undecodable reply leaves the played position as is.
func materialSwingCP(pos, played *chess.Position, reply string, mover chess.Color) int {
	after := played
	mv, err := chess.UCINotation{}.Decode(played, reply)
	if err == nil {
		after = played.Update(mv)
	}
	return materialBalanceCP(after, mover) - materialBalanceCP(pos, mover)
}

// materialBalanceCP is the mover's material minus the opponent's, in
// centipawns. Kings count for nothing.
func materialBalanceCP(pos *chess.Position, mover chess.Color) int {
	total := 0
	for _, piece := range pos.Board().SquareMap() {
		value := pieceValueCP[piece.Type()]
		if piece.Color() == mover {
			total += value
		} else {
			total -= value
		}
	}
	return total
}
