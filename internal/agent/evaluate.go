package agent

import (
	"fmt"

	"absorb-chess/internal/game"
)

// Material values in centipawns
const (
	pawnValue   = 100
	knightValue = 320
	bishopValue = 330
	rookValue   = 500
	queenValue  = 900
	kingValue   = 20000
)

// Piece-square tables indexed [rank][file] with rank 0 = the side's own
// back rank. Values are bonuses/penalties in centipawns added to material.

var pawnTable = [8][8]int{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{5, 10, 10, -20, -20, 10, 10, 5},
	{5, -5, -10, 0, 0, -10, -5, 5},
	{0, 0, 0, 20, 20, 0, 0, 0},
	{5, 5, 10, 25, 25, 10, 5, 5},
	{10, 10, 20, 30, 30, 20, 10, 10},
	{50, 50, 50, 50, 50, 50, 50, 50},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var knightTable = [8][8]int{
	{-50, -40, -30, -30, -30, -30, -40, -50},
	{-40, -20, 0, 5, 5, 0, -20, -40},
	{-30, 5, 10, 15, 15, 10, 5, -30},
	{-30, 0, 15, 20, 20, 15, 0, -30},
	{-30, 5, 15, 20, 20, 15, 5, -30},
	{-30, 0, 10, 15, 15, 10, 0, -30},
	{-40, -20, 0, 0, 0, 0, -20, -40},
	{-50, -40, -30, -30, -30, -30, -40, -50},
}

var bishopTable = [8][8]int{
	{-20, -10, -10, -10, -10, -10, -10, -20},
	{-10, 5, 0, 0, 0, 0, 5, -10},
	{-10, 10, 10, 10, 10, 10, 10, -10},
	{-10, 0, 10, 10, 10, 10, 0, -10},
	{-10, 5, 5, 10, 10, 5, 5, -10},
	{-10, 0, 5, 10, 10, 5, 0, -10},
	{-10, 0, 0, 0, 0, 0, 0, -10},
	{-20, -10, -10, -10, -10, -10, -10, -20},
}

var rookTable = [8][8]int{
	{0, 0, 0, 5, 5, 0, 0, 0},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{5, 10, 10, 10, 10, 10, 10, 5},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var queenTable = [8][8]int{
	{-20, -10, -10, -5, -5, -10, -10, -20},
	{-10, 0, 5, 0, 0, 0, 0, -10},
	{-10, 5, 5, 5, 5, 5, 0, -10},
	{0, 0, 5, 5, 5, 5, 0, -5},
	{-5, 0, 5, 5, 5, 5, 0, -5},
	{-10, 0, 5, 5, 5, 5, 0, -10},
	{-10, 0, 0, 0, 0, 0, 0, -10},
	{-20, -10, -10, -5, -5, -10, -10, -20},
}

var kingMiddleTable = [8][8]int{
	{20, 30, 10, 0, 0, 10, 30, 20},
	{20, 20, 0, 0, 0, 0, 20, 20},
	{-10, -20, -20, -20, -20, -20, -20, -10},
	{-20, -30, -30, -40, -40, -30, -30, -20},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
}

func materialValue(k game.PieceKind) int {
	switch k {
	case game.Pawn:
		return pawnValue
	case game.Knight:
		return knightValue
	case game.Bishop:
		return bishopValue
	case game.Rook:
		return rookValue
	case game.Queen:
		return queenValue
	case game.King:
		return kingValue
	}
	return 0
}

// abilityBonus values an absorbed ability at roughly half the material of
// the kind. The king ability only adds adjacent steps, so it is worth far
// less than the king itself.
func abilityBonus(k game.PieceKind) int {
	if k == game.King {
		return 40
	}
	return materialValue(k) / 2
}

func positionalValue(k game.PieceKind, rank, file int) int {
	switch k {
	case game.Pawn:
		return pawnTable[rank][file]
	case game.Knight:
		return knightTable[rank][file]
	case game.Bishop:
		return bishopTable[rank][file]
	case game.Rook:
		return rookTable[rank][file]
	case game.Queen:
		return queenTable[rank][file]
	case game.King:
		return kingMiddleTable[rank][file]
	}
	return 0
}

// Evaluate scores the position in centipawns, positive meaning white is
// better. Absorbed abilities count as extra material at a discount.
func Evaluate(g *game.Game) int {
	score := 0

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := g.PieceAt(game.Sq(row, col))
			if piece == nil {
				continue
			}

			// Tables index rank 0 as the piece's own back rank; white's
			// back rank is board row 7.
			rank := row
			if piece.Color == game.White {
				rank = 7 - row
			}

			total := materialValue(piece.Kind) + positionalValue(piece.Kind, rank, col)
			for _, ability := range piece.Abilities.Kinds() {
				if ability != piece.Kind {
					total += abilityBonus(ability)
				}
			}

			if piece.Color == game.White {
				score += total
			} else {
				score -= total
			}
		}
	}

	return score
}

// evaluateFor returns the evaluation from the given side's perspective.
func evaluateFor(g *game.Game, side game.Color) int {
	score := Evaluate(g)
	if side == game.Black {
		score = -score
	}
	return score
}

// parseKey decodes the "row,col" keys of the legal-move map.
func parseKey(key string, sq *game.Square) error {
	_, err := fmt.Sscanf(key, "%d,%d", &sq.Row, &sq.Col)
	return err
}
