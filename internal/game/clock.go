package game

// Clock tracks both players' remaining time in milliseconds. The controller
// charges elapsed time against the mover when a turn completes and credits
// the increment afterwards; a pending promotion never touches the clock.
type Clock struct {
	WhiteMs       int64 `json:"white_ms" bson:"white_ms"`
	BlackMs       int64 `json:"black_ms" bson:"black_ms"`
	IncrementMs   int64 `json:"increment_ms" bson:"increment_ms"`
	LastTurnStart int64 `json:"last_turn_start" bson:"last_turn_start"`
}

// Remaining returns the stored time left for the color, ignoring any
// in-progress turn.
func (c *Clock) Remaining(color Color) int64 {
	if color == White {
		return c.WhiteMs
	}
	return c.BlackMs
}

// RemainingAt returns the effective time left for the color at nowMs,
// subtracting the running turn when the color is to move.
func (c *Clock) RemainingAt(color, toMove Color, nowMs int64) int64 {
	remaining := c.Remaining(color)
	if color == toMove {
		remaining -= nowMs - c.LastTurnStart
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Charge deducts the elapsed turn from the mover, credits the increment,
// and restarts the turn timer at nowMs.
func (c *Clock) Charge(mover Color, nowMs int64) {
	elapsed := nowMs - c.LastTurnStart
	if elapsed < 0 {
		elapsed = 0
	}
	if mover == White {
		c.WhiteMs -= elapsed
		if c.WhiteMs < 0 {
			c.WhiteMs = 0
		}
		c.WhiteMs += c.IncrementMs
	} else {
		c.BlackMs -= elapsed
		if c.BlackMs < 0 {
			c.BlackMs = 0
		}
		c.BlackMs += c.IncrementMs
	}
	c.LastTurnStart = nowMs
}
