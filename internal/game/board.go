package game

// Board is the 8x8 grid. Cells hold nil or a piece owned by the board.
type Board [8][8]*Piece

// newStartingBoard places the standard starting position. Black occupies
// rows 0-1, white rows 6-7.
func newStartingBoard() Board {
	var b Board

	backRank := [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, kind := range backRank {
		b[0][col] = newPiece(kind, Black, Sq(0, col))
		b[7][col] = newPiece(kind, White, Sq(7, col))
	}
	for col := 0; col < 8; col++ {
		b[1][col] = newPiece(Pawn, Black, Sq(1, col))
		b[6][col] = newPiece(Pawn, White, Sq(6, col))
	}
	return b
}

func (b *Board) at(sq Square) *Piece {
	if !sq.InBounds() {
		return nil
	}
	return b[sq.Row][sq.Col]
}

func (b *Board) set(sq Square, p *Piece) {
	b[sq.Row][sq.Col] = p
	if p != nil {
		p.Pos = sq
	}
}

// pathClear reports whether every square strictly between from and to is
// empty. from and to must share a row, column, or diagonal.
func (b *Board) pathClear(from, to Square) bool {
	rowStep := sign(to.Row - from.Row)
	colStep := sign(to.Col - from.Col)

	cur := Sq(from.Row+rowStep, from.Col+colStep)
	for cur != to {
		if b.at(cur) != nil {
			return false
		}
		cur = Sq(cur.Row+rowStep, cur.Col+colStep)
	}
	return true
}

// findKing returns the square of the given color's king by nominal kind.
func (b *Board) findKing(color Color) (Square, bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p != nil && p.Kind == King && p.Color == color {
				return Sq(row, col), true
			}
		}
	}
	return Square{}, false
}

// pawnDirection is the row delta a pawn of the given color advances by.
func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// pawnStartRow is the row a pawn of the given color starts on.
func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// promotionRow is the last rank for the given color.
func promotionRow(c Color) int {
	if c == White {
		return 0
	}
	return 7
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}
