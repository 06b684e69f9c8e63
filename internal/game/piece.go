package game

import (
	"encoding/json"
	"fmt"
)

// PieceKind identifies one of the six chess piece kinds.
type PieceKind uint8

const (
	Pawn PieceKind = iota
	Rook
	Knight
	Bishop
	Queen
	King
	numKinds
)

var kindNames = [numKinds]string{"pawn", "rook", "knight", "bishop", "queen", "king"}

func (k PieceKind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a wire-format kind string to a PieceKind.
func ParseKind(s string) (PieceKind, error) {
	for i, name := range kindNames {
		if name == s {
			return PieceKind(i), nil
		}
	}
	return 0, fmt.Errorf("invalid piece kind: %q", s)
}

func (k PieceKind) MarshalJSON() ([]byte, error) {
	if k >= numKinds {
		return nil, fmt.Errorf("invalid piece kind: %d", int(k))
	}
	return json.Marshal(k.String())
}

func (k *PieceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// ParseColor converts a wire-format color string to a Color.
func ParseColor(s string) (Color, error) {
	switch s {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	return 0, fmt.Errorf("invalid color: %q", s)
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AbilitySet is a bitset over the six piece kinds. A piece moves legally if
// any ability in its set permits the move.
type AbilitySet uint8

// NewAbilitySet builds a set from the given kinds.
func NewAbilitySet(kinds ...PieceKind) AbilitySet {
	var s AbilitySet
	for _, k := range kinds {
		s.Add(k)
	}
	return s
}

func (s AbilitySet) Has(k PieceKind) bool {
	return s&(1<<k) != 0
}

func (s *AbilitySet) Add(k PieceKind) {
	*s |= 1 << k
}

// Kinds returns the members of the set in kind order.
func (s AbilitySet) Kinds() []PieceKind {
	kinds := make([]PieceKind, 0, 6)
	for k := PieceKind(0); k < numKinds; k++ {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (s AbilitySet) Len() int {
	n := 0
	for k := PieceKind(0); k < numKinds; k++ {
		if s.Has(k) {
			n++
		}
	}
	return n
}

func (s AbilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Kinds())
}

func (s *AbilitySet) UnmarshalJSON(data []byte) error {
	var kinds []PieceKind
	if err := json.Unmarshal(data, &kinds); err != nil {
		return err
	}
	*s = NewAbilitySet(kinds...)
	return nil
}

// Square addresses a board cell. Row 0 is black's back rank, row 7 white's.
// It serializes as a [row, col] pair.
type Square struct {
	Row int
	Col int
}

// Sq is shorthand for constructing a Square.
func Sq(row, col int) Square {
	return Square{Row: row, Col: col}
}

func (s Square) InBounds() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// Key returns the "row,col" form used in valid-move maps.
func (s Square) Key() string {
	return fmt.Sprintf("%d,%d", s.Row, s.Col)
}

func (s Square) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Row, s.Col})
}

func (s *Square) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Row, s.Col = pair[0], pair[1]
	return nil
}

// Piece is a single piece on the board. The board array owns the piece; the
// move history keeps value copies of kind and abilities, never references.
type Piece struct {
	Kind      PieceKind
	Color     Color
	Abilities AbilitySet
	Pos       Square
	HasMoved  bool
}

func newPiece(kind PieceKind, color Color, pos Square) *Piece {
	return &Piece{
		Kind:      kind,
		Color:     color,
		Abilities: NewAbilitySet(kind),
		Pos:       pos,
	}
}
