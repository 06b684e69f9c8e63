package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pc builds a piece for hand-assembled positions.
func pc(kind PieceKind, color Color, row, col int, moved bool) *Piece {
	p := newPiece(kind, color, Sq(row, col))
	p.HasMoved = moved
	return p
}

// testGame assembles a game from explicit pieces with the given side to move.
func testGame(turn Color, cancelAllowed bool, pieces ...*Piece) *Game {
	g := &Game{turn: turn, cancelAllowed: cancelAllowed}
	for _, p := range pieces {
		g.board.set(p.Pos, p)
	}
	g.updateCheckFlags()
	return g
}

func TestStartingPosition(t *testing.T) {
	g := New(600_000, 0, false)

	count := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if g.board[row][col] != nil {
				count++
			}
		}
	}
	assert.Equal(t, 32, count)
	assert.Equal(t, White, g.Turn())

	wk := g.PieceAt(Sq(7, 4))
	require.NotNil(t, wk)
	assert.Equal(t, King, wk.Kind)
	assert.Equal(t, White, wk.Color)
	assert.Equal(t, NewAbilitySet(King), wk.Abilities)

	bq := g.PieceAt(Sq(0, 3))
	require.NotNil(t, bq)
	assert.Equal(t, Queen, bq.Kind)
	assert.Equal(t, Black, bq.Color)
}

func TestMoveRejections(t *testing.T) {
	tests := []struct {
		name   string
		from   Square
		to     Square
		reason MoveReason
	}{
		{"no piece on source", Sq(4, 4), Sq(3, 4), ReasonNoPiece},
		{"opponent piece on source", Sq(1, 0), Sq(2, 0), ReasonWrongTurn},
		{"target out of bounds", Sq(6, 0), Sq(8, 0), ReasonOutOfBounds},
		{"own piece on target", Sq(7, 0), Sq(6, 0), ReasonOwnPieceAtTarget},
		{"pawn triple push", Sq(6, 0), Sq(3, 0), ReasonAbilityDisallows},
		{"rook through own pawn", Sq(7, 0), Sq(4, 0), ReasonAbilityDisallows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(600_000, 0, false)
			err := g.ApplyMove(tt.from, tt.to)
			require.NotNil(t, err)
			assert.Equal(t, tt.reason, err.Reason)
		})
	}
}

func TestPawnMoves(t *testing.T) {
	g := New(600_000, 0, false)

	require.Nil(t, g.ApplyMove(Sq(6, 4), Sq(4, 4)))
	assert.Equal(t, Black, g.Turn())

	ep := g.EnPassantTarget()
	require.NotNil(t, ep)
	assert.Equal(t, Sq(5, 4), *ep)

	require.Nil(t, g.ApplyMove(Sq(1, 3), Sq(2, 3)))
	assert.Nil(t, g.EnPassantTarget())

	// Double step after the pawn already moved.
	err := g.ApplyMove(Sq(4, 4), Sq(2, 4))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)

	// Diagonal without a capture target.
	err = g.ApplyMove(Sq(4, 4), Sq(3, 5))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)
}

func TestPawnCaptureAbsorbsNothingNew(t *testing.T) {
	g := New(600_000, 0, false)

	// e4, d5, exd5: capturing a pawn adds no new ability.
	require.Nil(t, g.ApplyMove(Sq(6, 4), Sq(4, 4)))
	require.Nil(t, g.ApplyMove(Sq(1, 3), Sq(3, 3)))
	require.Nil(t, g.ApplyMove(Sq(4, 4), Sq(3, 3)))

	p := g.PieceAt(Sq(3, 3))
	require.NotNil(t, p)
	assert.Equal(t, Pawn, p.Kind)
	assert.Equal(t, White, p.Color)
	assert.Equal(t, NewAbilitySet(Pawn), p.Abilities)

	head := g.History()[len(g.History())-1]
	require.NotNil(t, head.Captured)
	assert.Equal(t, Pawn, *head.Captured)
	assert.Empty(t, head.AbilitiesGained)
}

func TestAbsorptionGrantsMovement(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		pc(Rook, White, 4, 4, true),
		pc(Knight, Black, 4, 0, true),
		pc(King, Black, 0, 4, false),
		pc(Pawn, Black, 1, 0, false),
	)

	require.Nil(t, g.ApplyMove(Sq(4, 4), Sq(4, 0)))
	rook := g.PieceAt(Sq(4, 0))
	require.NotNil(t, rook)
	assert.Equal(t, Rook, rook.Kind)
	assert.True(t, rook.Abilities.Has(Rook))
	assert.True(t, rook.Abilities.Has(Knight))

	head := g.History()[len(g.History())-1]
	assert.Equal(t, []PieceKind{Knight}, head.AbilitiesGained)

	require.Nil(t, g.ApplyMove(Sq(1, 0), Sq(2, 0)))

	// The rook now moves like a knight too.
	require.Nil(t, g.ApplyMove(Sq(4, 0), Sq(2, 1)))
	assert.Equal(t, Rook, g.PieceAt(Sq(2, 1)).Kind)
}

func TestEnPassantCapture(t *testing.T) {
	g := New(600_000, 0, false)

	require.Nil(t, g.ApplyMove(Sq(6, 4), Sq(4, 4)))
	require.Nil(t, g.ApplyMove(Sq(1, 0), Sq(2, 0)))
	require.Nil(t, g.ApplyMove(Sq(4, 4), Sq(3, 4)))
	require.Nil(t, g.ApplyMove(Sq(1, 3), Sq(3, 3)))

	ep := g.EnPassantTarget()
	require.NotNil(t, ep)
	assert.Equal(t, Sq(2, 3), *ep)

	require.Nil(t, g.ApplyMove(Sq(3, 4), Sq(2, 3)))
	assert.Nil(t, g.PieceAt(Sq(3, 3)), "captured pawn removed from the third square")

	head := g.History()[len(g.History())-1]
	require.NotNil(t, head.EnPassantCaptured)
	assert.Equal(t, Pawn, *head.EnPassantCaptured)
}

func TestEnPassantWindowCloses(t *testing.T) {
	g := New(600_000, 0, false)

	require.Nil(t, g.ApplyMove(Sq(6, 4), Sq(4, 4)))
	require.Nil(t, g.ApplyMove(Sq(1, 0), Sq(2, 0)))
	require.Nil(t, g.ApplyMove(Sq(4, 4), Sq(3, 4)))
	require.Nil(t, g.ApplyMove(Sq(1, 3), Sq(3, 3)))

	// An intervening move pair expires the window.
	require.Nil(t, g.ApplyMove(Sq(6, 7), Sq(5, 7)))
	require.Nil(t, g.ApplyMove(Sq(2, 0), Sq(3, 0)))

	err := g.ApplyMove(Sq(3, 4), Sq(2, 3))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)
}

func TestCastlingKingside(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		pc(Rook, White, 7, 7, false),
		pc(King, Black, 0, 0, false),
	)

	require.Nil(t, g.ApplyMove(Sq(7, 4), Sq(7, 6)))
	assert.Equal(t, King, g.PieceAt(Sq(7, 6)).Kind)
	rook := g.PieceAt(Sq(7, 5))
	require.NotNil(t, rook, "rook lands on the crossed square")
	assert.Equal(t, Rook, rook.Kind)
	assert.True(t, rook.HasMoved)
	assert.True(t, g.kingCastled.White)
}

func TestCastlingThroughCheckRejected(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		pc(Rook, White, 7, 7, false),
		pc(Rook, Black, 0, 5, true),
		pc(King, Black, 0, 0, false),
	)

	err := g.ApplyMove(Sq(7, 4), Sq(7, 6))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)

	// Remove the attacker and the same castle succeeds.
	g.board[0][5] = nil
	require.Nil(t, g.ApplyMove(Sq(7, 4), Sq(7, 6)))
	assert.Equal(t, Rook, g.PieceAt(Sq(7, 5)).Kind)
}

func TestCastlingQueenside(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		pc(Rook, White, 7, 0, false),
		pc(King, Black, 0, 7, false),
	)

	require.Nil(t, g.ApplyMove(Sq(7, 4), Sq(7, 2)))
	assert.Equal(t, King, g.PieceAt(Sq(7, 2)).Kind)
	assert.Equal(t, Rook, g.PieceAt(Sq(7, 3)).Kind)
}

func TestCastlingRejectedAfterKingMoved(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, true),
		pc(Rook, White, 7, 7, false),
		pc(King, Black, 0, 0, false),
	)

	err := g.ApplyMove(Sq(7, 4), Sq(7, 6))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)
}

func TestAbsorbedKingAbilityNeverCastles(t *testing.T) {
	// A knight with an absorbed king ability has no nominal king kind, so
	// the castling clause never applies to it.
	n := pc(Knight, White, 7, 4, false)
	n.Abilities.Add(King)
	g := testGame(White, false,
		n,
		pc(Rook, White, 7, 7, false),
		pc(King, White, 6, 0, true),
		pc(King, Black, 0, 0, false),
	)

	err := g.ApplyMove(Sq(7, 4), Sq(7, 6))
	require.NotNil(t, err)
	assert.Equal(t, ReasonAbilityDisallows, err.Reason)
}

func TestSelfCheckRejected(t *testing.T) {
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		pc(Rook, White, 6, 4, true),
		pc(Rook, Black, 5, 4, true),
		pc(King, Black, 0, 0, false),
	)

	// The white rook is pinned to its king.
	err := g.ApplyMove(Sq(6, 4), Sq(6, 2))
	require.NotNil(t, err)
	assert.Equal(t, ReasonSelfCheck, err.Reason)

	// Capturing the pinning rook is fine.
	require.Nil(t, g.ApplyMove(Sq(6, 4), Sq(5, 4)))
	assert.Equal(t, Rook, g.PieceAt(Sq(5, 4)).Kind)
}

func TestSquareAttackedUsesAbilityUnion(t *testing.T) {
	// A bishop that absorbed rook movement attacks along files.
	b := pc(Bishop, Black, 0, 4, true)
	b.Abilities.Add(Rook)
	g := testGame(White, false,
		pc(King, White, 7, 4, false),
		b,
		pc(King, Black, 0, 0, false),
	)

	assert.True(t, g.InCheck(White))
}

func TestLegalMovesFromStart(t *testing.T) {
	g := New(600_000, 0, false)
	moves := g.LegalMoves()

	assert.Len(t, moves, 10, "8 pawns and 2 knights have moves")
	total := 0
	for _, targets := range moves {
		total += len(targets)
	}
	assert.Equal(t, 20, total)
	assert.Contains(t, moves, "6,4")
	assert.Contains(t, moves, "7,1")
}
