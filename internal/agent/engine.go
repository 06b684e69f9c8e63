package agent

import (
	"time"

	"absorb-chess/internal/game"
)

// Move is one engine decision. Promotion is set when the move lands a pawn
// on its last rank.
type Move struct {
	From      game.Square
	To        game.Square
	Promotion *game.PieceKind
}

// Engine picks a move for the side to move. Implementations may be
// in-process or out-of-process; the controller guarantees at most one
// outstanding call per game.
type Engine interface {
	BestMove(g *game.Game, depthHint int, budget time.Duration) (*Move, bool)
}
