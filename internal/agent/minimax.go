package agent

import (
	"crypto/rand"
	"math/big"
	"time"

	"absorb-chess/internal/game"
)

const (
	infinity  = 999999
	mateScore = 100000
)

// randomnessThreshold is the centipawn window within which moves are considered
// equally good. This adds variety to openings without sacrificing quality.
const randomnessThreshold = 30

const defaultDepth = 2

// Builtin is the in-process engine: alpha-beta over the rules engine's
// legal moves with absorption-aware evaluation.
type Builtin struct{}

func NewBuiltin() *Builtin {
	return &Builtin{}
}

// BestMove searches the position. Among moves within randomnessThreshold of
// the best score, one is chosen at random. The budget is a soft deadline
// checked between root moves.
func (b *Builtin) BestMove(g *game.Game, depthHint int, budget time.Duration) (*Move, bool) {
	moves := legalMoves(g)
	if len(moves) == 0 {
		return nil, false
	}

	depth := depthHint
	if depth <= 0 {
		depth = defaultDepth
	}
	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}

	type scoredMove struct {
		move  Move
		score int
	}
	scored := make([]scoredMove, 0, len(moves))

	bestScore := -infinity
	alpha := -infinity
	beta := infinity

	for i := range moves {
		m := moves[i]
		child := applyOn(clone(g), m)
		score := -alphaBeta(child, depth-1, -beta, -alpha)

		scored = append(scored, scoredMove{move: m, score: score})

		if score > bestScore {
			bestScore = score
		}
		if score > alpha {
			alpha = score
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
	}

	// Collect all moves within the randomness threshold of the best
	var candidates []Move
	for _, sm := range scored {
		if sm.score >= bestScore-randomnessThreshold {
			candidates = append(candidates, sm.move)
		}
	}
	if len(candidates) == 0 {
		result := scored[0].move
		return &result, true
	}

	idx := 0
	if len(candidates) > 1 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(candidates))))
		if err == nil {
			idx = int(n.Int64())
		}
	}
	return &candidates[idx], true
}

// alphaBeta is a negamax search; scores are from the perspective of the
// side to move in g.
func alphaBeta(g *game.Game, depth, alpha, beta int) int {
	if g.Over() {
		if _, ok := g.Winner(); ok {
			// The side to move has been mated (or lost its king).
			return -(mateScore + depth)
		}
		return 0
	}
	if depth <= 0 {
		return evaluateFor(g, g.Turn())
	}

	moves := legalMoves(g)
	if len(moves) == 0 {
		return evaluateFor(g, g.Turn())
	}

	best := -infinity
	for _, m := range moves {
		child := applyOn(clone(g), m)
		score := -alphaBeta(child, depth-1, -beta, -alpha)

		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break // beta cutoff
		}
	}
	return best
}

// legalMoves flattens the rules engine's legal-move map. Pawn moves onto
// the last rank carry a queen promotion; the engine never underpromotes.
func legalMoves(g *game.Game) []Move {
	var out []Move
	for key, targets := range g.LegalMoves() {
		var from game.Square
		if err := parseKey(key, &from); err != nil {
			continue
		}
		piece := g.PieceAt(from)
		for _, to := range targets {
			m := Move{From: from, To: to}
			if piece != nil && piece.Kind == game.Pawn && (to.Row == 0 || to.Row == 7) {
				q := game.Queen
				m.Promotion = &q
			}
			out = append(out, m)
		}
	}
	return out
}

// applyOn plays the move on the given game, resolving any promotion it
// triggers, and returns the same game.
func applyOn(g *game.Game, m Move) *game.Game {
	if err := g.ApplyMove(m.From, m.To); err != nil {
		return g
	}
	if g.PromotionPending() != nil {
		choice := game.Queen
		if m.Promotion != nil {
			choice = *m.Promotion
		}
		g.ApplyPromotion(choice)
	}
	return g
}

func clone(g *game.Game) *game.Game {
	return game.Load(g.Serialize(false))
}
