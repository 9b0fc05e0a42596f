package uci

import (
	"strconv"
	"strings"
)

type infoUpdate struct {
	Score *Score
	PV    string
}

// parseInfoLine mines an "info" line for score and principal variation
// tokens. Lines without either still match; unknown tokens are skipped so
// extra engine chatter stays harmless.
func parseInfoLine(line string) (infoUpdate, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return infoUpdate{}, false
	}

	update := infoUpdate{}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "score":
			if i+2 < len(fields) {
				if value, err := strconv.Atoi(fields[i+2]); err == nil {
					switch fields[i+1] {
					case "cp":
						update.Score = &Score{Type: Centipawns, Value: value}
					case "mate":
						update.Score = &Score{Type: Mate, Value: value}
					}
				}
				i += 2
			}
		case "pv":
			// pv is always the trailing token group.
			if i+1 < len(fields) {
				update.PV = strings.Join(fields[i+1:], " ")
			}
			return update, true
		}
	}

	return update, true
}

// parseBestMove extracts the move from a result line: the second
// whitespace-separated field. A missing field degrades to NullMove rather
// than failing the exchange.
func parseBestMove(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return NullMove
	}
	return fields[1]
}

func isBestMove(line string) bool {
	return strings.HasPrefix(line, bestMovePrefix)
}
