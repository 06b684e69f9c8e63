package game

// abilityAllows reports whether a single ability permits moving the piece
// from one square to another. The checks are purely geometric and
// path-based; own-king safety is layered on top by the caller. The
// destination never holds a same-color piece when this is called.
func (g *Game) abilityAllows(p *Piece, from, to Square, ability PieceKind) bool {
	switch ability {
	case Pawn:
		return g.pawnMoveAllowed(p, from, to)
	case Rook:
		return g.rookMoveAllowed(from, to)
	case Knight:
		return knightMoveAllowed(from, to)
	case Bishop:
		return g.bishopMoveAllowed(from, to)
	case Queen:
		return g.rookMoveAllowed(from, to) || g.bishopMoveAllowed(from, to)
	case King:
		return g.kingMoveAllowed(p, from, to)
	}
	return false
}

// moveAllowed reports whether any ability in the piece's set permits the
// move.
func (g *Game) moveAllowed(p *Piece, from, to Square) bool {
	for _, ability := range p.Abilities.Kinds() {
		if g.abilityAllows(p, from, to, ability) {
			return true
		}
	}
	return false
}

func (g *Game) pawnMoveAllowed(p *Piece, from, to Square) bool {
	dir := pawnDirection(p.Color)

	// Single step forward to an empty square.
	if to.Col == from.Col && to.Row == from.Row+dir {
		return g.board.at(to) == nil
	}

	// Double step from the start row, both squares empty.
	if to.Col == from.Col && from.Row == pawnStartRow(p.Color) && to.Row == from.Row+2*dir {
		return g.board.at(to) == nil && g.board.at(Sq(from.Row+dir, from.Col)) == nil
	}

	// Diagonal capture, including onto the en-passant target square.
	if abs(to.Col-from.Col) == 1 && to.Row == from.Row+dir {
		if target := g.board.at(to); target != nil {
			return target.Color != p.Color
		}
		return g.enPassant != nil && *g.enPassant == to
	}

	return false
}

func (g *Game) rookMoveAllowed(from, to Square) bool {
	if from.Row != to.Row && from.Col != to.Col {
		return false
	}
	return g.board.pathClear(from, to)
}

func (g *Game) bishopMoveAllowed(from, to Square) bool {
	if abs(to.Row-from.Row) != abs(to.Col-from.Col) {
		return false
	}
	return g.board.pathClear(from, to)
}

func knightMoveAllowed(from, to Square) bool {
	rowDiff := abs(to.Row - from.Row)
	colDiff := abs(to.Col - from.Col)
	return (rowDiff == 2 && colDiff == 1) || (rowDiff == 1 && colDiff == 2)
}

func (g *Game) kingMoveAllowed(p *Piece, from, to Square) bool {
	rowDiff := abs(to.Row - from.Row)
	colDiff := abs(to.Col - from.Col)

	// Single square in any direction.
	if rowDiff <= 1 && colDiff <= 1 && rowDiff+colDiff > 0 {
		return true
	}

	// Castling. Only the piece's nominal king kind castles; an absorbed
	// rook ability never re-enables it.
	if p.Kind != King || p.HasMoved || rowDiff != 0 || colDiff != 2 {
		return false
	}

	dir := sign(to.Col - from.Col)
	rookCol := 7
	if dir == -1 {
		rookCol = 0
	}
	rook := g.board.at(Sq(from.Row, rookCol))
	if rook == nil || rook.Kind != Rook || rook.Color != p.Color || rook.HasMoved {
		return false
	}

	// Squares strictly between king and rook must be empty.
	for col := min(from.Col, rookCol) + 1; col < max(from.Col, rookCol); col++ {
		if g.board.at(Sq(from.Row, col)) != nil {
			return false
		}
	}

	// King may not castle out of, through, or into check.
	if g.kingInCheck(p.Color) {
		return false
	}
	for _, col := range []int{from.Col + dir, from.Col + 2*dir} {
		if g.squareAttacked(Sq(from.Row, col), p.Color) {
			return false
		}
	}
	return true
}

// attackAllows reports whether a single ability lets the piece attack the
// given square. It differs from abilityAllows only for pawns, whose forward
// pushes threaten nothing, and for kings, where the castling clause is
// irrelevant to attacks.
func (g *Game) attackAllows(p *Piece, from, to Square, ability PieceKind) bool {
	switch ability {
	case Pawn:
		return abs(to.Col-from.Col) == 1 && to.Row == from.Row+pawnDirection(p.Color)
	case King:
		rowDiff := abs(to.Row - from.Row)
		colDiff := abs(to.Col - from.Col)
		return rowDiff <= 1 && colDiff <= 1 && rowDiff+colDiff > 0
	default:
		return g.abilityAllows(p, from, to, ability)
	}
}

// squareAttacked reports whether any piece of the defender's opponent
// attacks the square, using the union of each attacker's abilities.
func (g *Game) squareAttacked(sq Square, defender Color) bool {
	attacker := defender.Opponent()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := g.board[row][col]
			if p == nil || p.Color != attacker {
				continue
			}
			from := Sq(row, col)
			for _, ability := range p.Abilities.Kinds() {
				if g.attackAllows(p, from, sq, ability) {
					return true
				}
			}
		}
	}
	return false
}

// kingInCheck reports whether the given color's king is attacked.
func (g *Game) kingInCheck(color Color) bool {
	kingSq, ok := g.board.findKing(color)
	if !ok {
		return false
	}
	return g.squareAttacked(kingSq, color)
}

// wouldLeaveKingInCheck simulates the move in place, tests king safety, and
// reverts. Undo needs only the displaced references, never a deep copy.
func (g *Game) wouldLeaveKingInCheck(p *Piece, from, to Square) bool {
	captured := g.board.at(to)

	// An en-passant capture removes a pawn from a third square.
	var epVictim *Piece
	var epSquare Square
	if p.Kind == Pawn && captured == nil && g.enPassant != nil && *g.enPassant == to && from.Col != to.Col {
		epSquare = Sq(to.Row-pawnDirection(p.Color), to.Col)
		epVictim = g.board.at(epSquare)
		if epVictim != nil {
			g.board[epSquare.Row][epSquare.Col] = nil
		}
	}

	g.board[to.Row][to.Col] = p
	g.board[from.Row][from.Col] = nil
	origPos := p.Pos
	p.Pos = to

	inCheck := g.kingInCheck(p.Color)

	g.board[from.Row][from.Col] = p
	g.board[to.Row][to.Col] = captured
	p.Pos = origPos
	if epVictim != nil {
		g.board[epSquare.Row][epSquare.Col] = epVictim
	}

	return inCheck
}
