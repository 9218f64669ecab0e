package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAN(t *testing.T) {
	tests := []struct {
		fen  string
		move string
		san  string
	}{
		{StartFEN, "e2e4", "e4"},
		{StartFEN, "g1f3", "Nf3"},
		{"r1bqkbnr/pppp1ppp/2n5/4p3/3PP3/5N2/PPP2PPP/RNBQKB1R b KQkq - 0 3", "e5d4", "exd4"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8", "O-O-O"},
		// Both knights reach d2: the file tells them apart.
		{"4k3/8/8/8/8/8/8/1N2KN2 w - - 0 1", "b1d2", "Nbd2"},
		// Both rooks on the a-file reach a4: the rank tells them apart.
		{"4k3/8/R7/8/8/8/R7/4K3 w - - 0 1", "a2a4", "R2a4"},
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8q", "b8=Q+"},
		{"6k1/5ppp/8/8/8/8/8/R6K w - - 0 1", "a1a8", "Ra8#"},
	}
	for _, tt := range tests {
		t.Run(tt.san, func(t *testing.T) {
			pos, err := ParseFEN(tt.fen)
			require.NoError(t, err)
			m, err := ParseMove(tt.move, pos)
			require.NoError(t, err)

			assert.Equal(t, tt.san, m.SAN(pos))

			back, err := ParseSAN(tt.san, pos)
			require.NoError(t, err)
			assert.Equal(t, m, back)
		})
	}
}

func TestParseSANErrors(t *testing.T) {
	pos := StartPosition()

	_, err := ParseSAN("e5", pos)
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = ParseSAN("O-O", pos)
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = ParseSAN("Zf3", pos)
	assert.ErrorIs(t, err, ErrMalformedMove)
	_, err = ParseSAN("e8=", pos)
	assert.ErrorIs(t, err, ErrMalformedMove)
	_, err = ParseSAN("N", pos)
	assert.ErrorIs(t, err, ErrMalformedMove)

	m, err := ParseSAN("Nf3!?", pos)
	require.NoError(t, err)
	assert.Equal(t, "g1f3", m.String())
}

func TestMovesToSAN(t *testing.T) {
	pos := StartPosition()
	var line []Move
	cur := pos
	for _, s := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		m, err := ParseMove(s, cur)
		require.NoError(t, err)
		line = append(line, m)
		cur = cur.Apply(m)
	}
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, MovesToSAN(pos, line))
	assert.Equal(t, "-", NoMove.SAN(pos))
}
