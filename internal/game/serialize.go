package game

// MoveRecord is one half-move in the game history. Captured kinds and
// gained abilities are value copies taken at move time.
type MoveRecord struct {
	From              Square      `json:"from" bson:"from"`
	To                Square      `json:"to" bson:"to"`
	Piece             PieceKind   `json:"piece_kind" bson:"piece_kind"`
	Captured          *PieceKind  `json:"captured_kind,omitempty" bson:"captured_kind,omitempty"`
	EnPassantCaptured *PieceKind  `json:"en_passant_captured,omitempty" bson:"en_passant_captured,omitempty"`
	AbilitiesGained   []PieceKind `json:"abilities_gained,omitempty" bson:"abilities_gained,omitempty"`
	PromotedTo        *PieceKind  `json:"promoted_to,omitempty" bson:"promoted_to,omitempty"`
}

// PromotionPending freezes a game on the promoting player's turn until the
// promotion is chosen or cancelled.
type PromotionPending struct {
	Row   int    `json:"row" bson:"row"`
	Col   int    `json:"col" bson:"col"`
	Color Color  `json:"color" bson:"color"`
	From  Square `json:"from" bson:"from"`
}

// CastledFlags records which sides have castled, for position evaluation
// and the wire state.
type CastledFlags struct {
	White bool `json:"white" bson:"white"`
	Black bool `json:"black" bson:"black"`
}

// PieceState is the wire form of one piece.
type PieceState struct {
	Kind      PieceKind  `json:"kind" bson:"kind"`
	Color     Color      `json:"color" bson:"color"`
	Abilities AbilitySet `json:"abilities" bson:"abilities"`
	Position  Square     `json:"position" bson:"position"`
	HasMoved  bool       `json:"has_moved" bson:"has_moved"`
}

// State is the full serialized game, shared by the websocket protocol and
// the Mongo snapshot. The board is an 8x8 array of nullable piece records.
// Loading a State yields a playable game; only the in-memory promotion undo
// record is lost across a reload.
type State struct {
	Board            [8][8]*PieceState `json:"board" bson:"board"`
	Turn             Color             `json:"current_turn" bson:"current_turn"`
	GameOver         bool              `json:"game_over" bson:"game_over"`
	Winner           *Color            `json:"winner,omitempty" bson:"winner,omitempty"`
	WhiteInCheck     bool              `json:"white_king_in_check" bson:"white_king_in_check"`
	BlackInCheck     bool              `json:"black_king_in_check" bson:"black_king_in_check"`
	EnPassantTarget  *Square           `json:"en_passant_target,omitempty" bson:"en_passant_target,omitempty"`
	PromotionPending *PromotionPending `json:"promotion_pending,omitempty" bson:"promotion_pending,omitempty"`
	History          []MoveRecord      `json:"move_history" bson:"move_history"`
	Clock            Clock             `json:"clock" bson:"clock"`
	KingCastled      CastledFlags      `json:"king_castled" bson:"king_castled"`
	CancelAllowed    bool              `json:"promotion_cancel_allowed" bson:"promotion_cancel_allowed"`

	// ValidMoves is included only in states sent to the player to move.
	ValidMoves map[string][]Square `json:"valid_moves,omitempty" bson:"-"`
}

// Serialize captures the complete game state. When withMoves is true the
// state carries the legal-move map for the side to move.
func (g *Game) Serialize(withMoves bool) *State {
	s := &State{
		Turn:          g.turn,
		GameOver:      g.gameOver,
		WhiteInCheck:  g.whiteInCheck,
		BlackInCheck:  g.blackInCheck,
		History:       g.history,
		Clock:         g.clock,
		KingCastled:   g.kingCastled,
		CancelAllowed: g.cancelAllowed,
	}
	if g.winner != nil {
		w := *g.winner
		s.Winner = &w
	}
	if g.enPassant != nil {
		ep := *g.enPassant
		s.EnPassantTarget = &ep
	}
	if g.pending != nil {
		p := *g.pending
		s.PromotionPending = &p
	}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if p := g.board[row][col]; p != nil {
				s.Board[row][col] = &PieceState{
					Kind:      p.Kind,
					Color:     p.Color,
					Abilities: p.Abilities,
					Position:  p.Pos,
					HasMoved:  p.HasMoved,
				}
			}
		}
	}
	if withMoves && !g.gameOver && g.pending == nil {
		s.ValidMoves = g.LegalMoves()
	}
	return s
}

// Load rebuilds a game from a serialized state.
func Load(s *State) *Game {
	g := &Game{
		turn:          s.Turn,
		gameOver:      s.GameOver,
		whiteInCheck:  s.WhiteInCheck,
		blackInCheck:  s.BlackInCheck,
		history:       append([]MoveRecord(nil), s.History...),
		clock:         s.Clock,
		kingCastled:   s.KingCastled,
		cancelAllowed: s.CancelAllowed,
	}
	if s.Winner != nil {
		w := *s.Winner
		g.winner = &w
	}
	if s.EnPassantTarget != nil {
		ep := *s.EnPassantTarget
		g.enPassant = &ep
	}
	if s.PromotionPending != nil {
		p := *s.PromotionPending
		g.pending = &p
	}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			ps := s.Board[row][col]
			if ps == nil {
				continue
			}
			g.board.set(Sq(row, col), &Piece{
				Kind:      ps.Kind,
				Color:     ps.Color,
				Abilities: ps.Abilities,
				Pos:       Sq(row, col),
				HasMoved:  ps.HasMoved,
			})
		}
	}
	return g
}
