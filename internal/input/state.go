package input

import (
	"math"

	"github.com/Versifine/strider/internal/movement"
)

// State is level-triggered input as polled from a device or a script. Jump is
// true for as long as the button is held.
type State struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
	Jump       bool    `json:"jump"`
}

// Clamped limits both axes to [-1, 1]. NaN reads as released.
func (s State) Clamped() State {
	s.Horizontal = clampAxis(s.Horizontal)
	s.Vertical = clampAxis(s.Vertical)
	return s
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// Edge turns the held jump button into a press event.
type Edge struct {
	held bool
}

// Apply returns the controller input for s. JumpTriggered is set only on the
// first frame the button is down.
func (e *Edge) Apply(s State) movement.Input {
	s = s.Clamped()
	triggered := s.Jump && !e.held
	e.held = s.Jump
	return movement.Input{
		Horizontal:    s.Horizontal,
		Vertical:      s.Vertical,
		JumpTriggered: triggered,
	}
}

func (e *Edge) Reset() {
	e.held = false
}
