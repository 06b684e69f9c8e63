package game

import (
	"fmt"
	"time"
)

// MoveReason tags why a move was rejected. Reasons travel to the client in
// invalid_move replies; they are values, never panics.
type MoveReason string

const (
	ReasonWrongTurn        MoveReason = "wrong_turn"
	ReasonNoPiece          MoveReason = "no_piece"
	ReasonOwnPieceAtTarget MoveReason = "own_piece_at_target"
	ReasonOutOfBounds      MoveReason = "out_of_bounds"
	ReasonAbilityDisallows MoveReason = "ability_disallows"
	ReasonSelfCheck        MoveReason = "puts_own_king_in_check"
	ReasonPromotionPending MoveReason = "promotion_pending_must_resolve"
	ReasonGameOver         MoveReason = "game_over"
)

// MoveError is the tagged rejection returned by the rules layer.
type MoveError struct {
	Reason  MoveReason
	Details []string
}

func (e *MoveError) Error() string {
	return string(e.Reason)
}

func reject(reason MoveReason, details ...string) *MoveError {
	return &MoveError{Reason: reason, Details: details}
}

// promotionUndo captures everything needed to cancel a pending promotion:
// the pre-move state of the pawn and whatever it captured.
type promotionUndo struct {
	captured     *Piece // value copy of the piece taken on the promoting move
	capturedAt   Square
	abilities    AbilitySet
	hadMoved     bool
	enPassant    *Square
	historyLen   int
	whiteInCheck bool
	blackInCheck bool
}

// Game is one absorption-chess game: position, clocks, turn, history and
// the promotion-pending sub-state. A match controller exclusively owns its
// Game; none of these methods are safe for concurrent use.
type Game struct {
	board        Board
	turn         Color
	gameOver     bool
	winner       *Color
	history      []MoveRecord
	whiteInCheck bool
	blackInCheck bool
	enPassant    *Square
	pending      *PromotionPending
	pendingUndo  *promotionUndo
	clock        Clock
	kingCastled  CastledFlags

	cancelAllowed bool
}

// New sets up the standard starting position with white to move and both
// clocks at baseMs.
func New(baseMs, incrementMs int64, cancelAllowed bool) *Game {
	return &Game{
		board: newStartingBoard(),
		turn:  White,
		clock: Clock{
			WhiteMs:       baseMs,
			BlackMs:       baseMs,
			IncrementMs:   incrementMs,
			LastTurnStart: time.Now().UnixMilli(),
		},
		cancelAllowed: cancelAllowed,
	}
}

func (g *Game) Turn() Color { return g.turn }

func (g *Game) Over() bool { return g.gameOver }

// Winner returns the winning color; ok is false for a drawn or running game.
func (g *Game) Winner() (Color, bool) {
	if g.winner == nil {
		return White, false
	}
	return *g.winner, true
}

func (g *Game) InCheck(c Color) bool {
	if c == White {
		return g.whiteInCheck
	}
	return g.blackInCheck
}

// Clock returns the game clock for the controller to charge and credit.
func (g *Game) Clock() *Clock { return &g.clock }

// PromotionPending returns the pending promotion record, if any.
func (g *Game) PromotionPending() *PromotionPending { return g.pending }

// PieceAt returns the piece on the square, or nil.
func (g *Game) PieceAt(sq Square) *Piece { return g.board.at(sq) }

// EnPassantTarget returns the square a pawn passed over on the previous
// half-move, if any.
func (g *Game) EnPassantTarget() *Square { return g.enPassant }

// History returns the move history. Callers must not mutate it.
func (g *Game) History() []MoveRecord { return g.history }

// End marks the game over with the given winner. Used by the controller for
// resignation, timeout and disconnect forfeits.
func (g *Game) End(winner Color) {
	g.gameOver = true
	w := winner
	g.winner = &w
}

// EndDraw marks the game over with no winner.
func (g *Game) EndDraw() {
	g.gameOver = true
	g.winner = nil
}

// ApplyMove validates and applies a move for the side to move. On success
// it performs castling, en-passant capture and ability absorption, records
// history, and either sets promotion-pending (turn kept) or switches the
// turn and adjudicates checkmate/stalemate. Clocks are not touched here;
// the controller owns elapsed-time accounting.
func (g *Game) ApplyMove(from, to Square) *MoveError {
	if g.gameOver {
		return reject(ReasonGameOver)
	}
	if g.pending != nil {
		return reject(ReasonPromotionPending, "resolve the pending promotion first")
	}
	if !from.InBounds() || !to.InBounds() {
		return reject(ReasonOutOfBounds, fmt.Sprintf("target (%d,%d) out of bounds", to.Row, to.Col))
	}
	piece := g.board.at(from)
	if piece == nil {
		return reject(ReasonNoPiece, fmt.Sprintf("no piece at (%d,%d)", from.Row, from.Col))
	}
	if piece.Color != g.turn {
		return reject(ReasonWrongTurn,
			fmt.Sprintf("current turn: %s, piece color: %s", g.turn, piece.Color))
	}
	if from == to {
		return reject(ReasonAbilityDisallows, "source and target are the same square")
	}
	target := g.board.at(to)
	if target != nil && target.Color == piece.Color {
		return reject(ReasonOwnPieceAtTarget)
	}
	if !g.moveAllowed(piece, from, to) {
		details := []string{fmt.Sprintf("abilities: %v", piece.Abilities.Kinds())}
		return reject(ReasonAbilityDisallows, details...)
	}
	if g.wouldLeaveKingInCheck(piece, from, to) {
		return reject(ReasonSelfCheck)
	}

	undo := promotionUndo{
		abilities:    piece.Abilities,
		hadMoved:     piece.HasMoved,
		enPassant:    g.enPassant,
		historyLen:   len(g.history),
		whiteInCheck: g.whiteInCheck,
		blackInCheck: g.blackInCheck,
	}

	// Castling: move the rook to the square the king crossed.
	if piece.Kind == King && abs(to.Col-from.Col) == 2 && from.Row == to.Row {
		dir := sign(to.Col - from.Col)
		rookCol := 7
		if dir == -1 {
			rookCol = 0
		}
		rook := g.board.at(Sq(from.Row, rookCol))
		g.board[from.Row][rookCol] = nil
		g.board.set(Sq(from.Row, to.Col-dir), rook)
		rook.HasMoved = true
		if piece.Color == White {
			g.kingCastled.White = true
		} else {
			g.kingCastled.Black = true
		}
	}

	// En-passant capture removes the pawn one row behind the destination.
	var epCaptured *Piece
	if piece.Kind == Pawn && target == nil && g.enPassant != nil && *g.enPassant == to && from.Col != to.Col {
		epSq := Sq(to.Row-pawnDirection(piece.Color), to.Col)
		epCaptured = g.board.at(epSq)
		if epCaptured != nil {
			g.board[epSq.Row][epSq.Col] = nil
		}
	}

	captured := target
	if captured == nil {
		captured = epCaptured
	}

	record := MoveRecord{From: from, To: to, Piece: piece.Kind}
	if captured != nil {
		undo.captured = &Piece{
			Kind:      captured.Kind,
			Color:     captured.Color,
			Abilities: captured.Abilities,
			Pos:       captured.Pos,
			HasMoved:  captured.HasMoved,
		}
		undo.capturedAt = captured.Pos

		kind := captured.Kind
		record.Captured = &kind
		if epCaptured != nil {
			record.EnPassantCaptured = &kind
		}

		// Absorption: the capturer permanently gains the victim's kind.
		if !piece.Abilities.Has(kind) {
			piece.Abilities.Add(kind)
			record.AbilitiesGained = []PieceKind{kind}
		}

		// King capture is a safety net; normal play ends by checkmate.
		if kind == King {
			g.End(piece.Color)
		}
	}

	g.board[from.Row][from.Col] = nil
	g.board.set(to, piece)
	piece.HasMoved = true

	// A double step exposes the passed-over square for one half-move.
	g.enPassant = nil
	if piece.Kind == Pawn && from.Col == to.Col && abs(to.Row-from.Row) == 2 {
		passed := Sq(from.Row+pawnDirection(piece.Color), from.Col)
		g.enPassant = &passed
	}

	// A pawn reaching its last rank freezes the turn until the player
	// chooses (or cancels) the promotion.
	if piece.Kind == Pawn && to.Row == promotionRow(piece.Color) && !g.gameOver {
		g.pending = &PromotionPending{
			Row:   to.Row,
			Col:   to.Col,
			Color: piece.Color,
			From:  from,
		}
		g.pendingUndo = &undo
	}

	g.history = append(g.history, record)
	g.updateCheckFlags()

	if g.pending == nil && !g.gameOver {
		g.turn = g.turn.Opponent()
		g.adjudicateTerminal()
	}
	return nil
}

// ApplyPromotion resolves a pending promotion with the chosen kind. The
// pawn's nominal kind changes, the chosen kind joins its abilities, and
// every ability absorbed before or during the promoting move is retained.
func (g *Game) ApplyPromotion(choice PieceKind) *MoveError {
	if g.gameOver {
		return reject(ReasonGameOver)
	}
	if g.pending == nil {
		return reject(ReasonAbilityDisallows, "no promotion pending")
	}
	switch choice {
	case Queen, Rook, Bishop, Knight:
	default:
		return reject(ReasonAbilityDisallows, fmt.Sprintf("cannot promote to %s", choice))
	}

	sq := Sq(g.pending.Row, g.pending.Col)
	pawn := g.board.at(sq)
	if pawn == nil || pawn.Kind != Pawn {
		return reject(ReasonAbilityDisallows, "no pawn on the promotion square")
	}

	pawn.Kind = choice
	pawn.Abilities.Add(choice)

	if n := len(g.history); n > 0 {
		head := &g.history[n-1]
		promoted := choice
		head.PromotedTo = &promoted
		head.AbilitiesGained = pawn.Abilities.Kinds()
	}

	g.pending = nil
	g.pendingUndo = nil

	g.turn = g.turn.Opponent()
	g.updateCheckFlags()
	g.adjudicateTerminal()
	return nil
}

// CancelPromotion moves the pawn back to its origin, restores any captured
// piece and the pre-move ability set, and leaves the turn with the
// promoting player. Only valid when the deployment enables cancellation.
func (g *Game) CancelPromotion() *MoveError {
	if g.pending == nil {
		return reject(ReasonAbilityDisallows, "no promotion pending")
	}
	if !g.cancelAllowed {
		return reject(ReasonAbilityDisallows, "promotion cancel disabled")
	}

	sq := Sq(g.pending.Row, g.pending.Col)
	pawn := g.board.at(sq)
	g.board[sq.Row][sq.Col] = nil
	g.board.set(g.pending.From, pawn)

	undo := g.pendingUndo
	if undo != nil {
		pawn.Abilities = undo.abilities
		pawn.HasMoved = undo.hadMoved
		g.enPassant = undo.enPassant
		g.history = g.history[:undo.historyLen]
		g.whiteInCheck = undo.whiteInCheck
		g.blackInCheck = undo.blackInCheck
		if undo.captured != nil {
			restored := *undo.captured
			g.board.set(undo.capturedAt, &restored)
		}
	} else {
		// Snapshot reload lost the undo record; rebuild the capture from
		// the history head. Absorbed abilities of the victim are gone.
		if n := len(g.history); n > 0 {
			head := g.history[n-1]
			if head.Captured != nil {
				g.board.set(sq, newPiece(*head.Captured, pawn.Color.Opponent(), sq))
			}
			g.history = g.history[:n-1]
		}
		g.updateCheckFlags()
	}

	g.pending = nil
	g.pendingUndo = nil
	return nil
}

// LegalMoves returns every fully legal move for the side to move, keyed by
// the origin square's "row,col" form. This is the map published to clients.
func (g *Game) LegalMoves() map[string][]Square {
	return g.LegalMovesFor(g.turn)
}

// LegalMovesFor enumerates legal moves for the given color: ability-allowed
// moves that do not leave the mover's own king in check.
func (g *Game) LegalMovesFor(color Color) map[string][]Square {
	moves := make(map[string][]Square)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := g.board[row][col]
			if piece == nil || piece.Color != color {
				continue
			}
			from := Sq(row, col)
			var targets []Square
			for toRow := 0; toRow < 8; toRow++ {
				for toCol := 0; toCol < 8; toCol++ {
					to := Sq(toRow, toCol)
					if to == from {
						continue
					}
					if target := g.board.at(to); target != nil && target.Color == color {
						continue
					}
					if !g.moveAllowed(piece, from, to) {
						continue
					}
					if g.wouldLeaveKingInCheck(piece, from, to) {
						continue
					}
					targets = append(targets, to)
				}
			}
			if len(targets) > 0 {
				moves[from.Key()] = targets
			}
		}
	}
	return moves
}

// HasLegalMoves reports whether the color has at least one legal move.
func (g *Game) HasLegalMoves(color Color) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := g.board[row][col]
			if piece == nil || piece.Color != color {
				continue
			}
			from := Sq(row, col)
			for toRow := 0; toRow < 8; toRow++ {
				for toCol := 0; toCol < 8; toCol++ {
					to := Sq(toRow, toCol)
					if to == from {
						continue
					}
					if target := g.board.at(to); target != nil && target.Color == color {
						continue
					}
					if g.moveAllowed(piece, from, to) && !g.wouldLeaveKingInCheck(piece, from, to) {
						return true
					}
				}
			}
		}
	}
	return false
}

func (g *Game) updateCheckFlags() {
	g.whiteInCheck = g.kingInCheck(White)
	g.blackInCheck = g.kingInCheck(Black)
}

// adjudicateTerminal ends the game when the side to move has no legal
// moves: checkmate if its king is attacked, stalemate otherwise.
func (g *Game) adjudicateTerminal() {
	if g.gameOver || g.HasLegalMoves(g.turn) {
		return
	}
	g.gameOver = true
	if g.InCheck(g.turn) {
		w := g.turn.Opponent()
		g.winner = &w
	} else {
		g.winner = nil
	}
}
