package uci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfoLineCP(t *testing.T) {
	update, ok := parseInfoLine("info multipv 1 depth 18 score cp 34 pv e2e4 e7e5 g1f3")
	require.True(t, ok)
	require.NotNil(t, update.Score)
	assert.Equal(t, Score{Type: Centipawns, Value: 34}, *update.Score)
	assert.Equal(t, "e2e4 e7e5 g1f3", update.PV)
}

func TestParseInfoLineMate(t *testing.T) {
	update, ok := parseInfoLine("info depth 22 score mate -3 pv h7h8q")
	require.True(t, ok)
	require.NotNil(t, update.Score)
	assert.Equal(t, Score{Type: Mate, Value: -3}, *update.Score)
	assert.Equal(t, "h7h8q", update.PV)
}

func TestParseInfoLineWithoutScoreOrPV(t *testing.T) {
	update, ok := parseInfoLine("info depth 5 nodes 12345 nps 100000")
	require.True(t, ok)
	assert.Nil(t, update.Score)
	assert.Empty(t, update.PV)
}

func TestParseInfoLineRejectsOtherLines(t *testing.T) {
	_, ok := parseInfoLine("bestmove e2e4")
	assert.False(t, ok)

	_, ok = parseInfoLine("")
	assert.False(t, ok)
}

func TestParseBestMove(t *testing.T) {
	assert.Equal(t, "e2e4", parseBestMove("bestmove e2e4 ponder e7e5"))
	assert.Equal(t, "(none)", parseBestMove("bestmove (none)"))
}

func TestParseBestMoveMissingTokenDegradesToNullMove(t *testing.T) {
	assert.Equal(t, NullMove, parseBestMove("bestmove"))
}
