package input

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrNoSource = errors.New("input: no source")

// Frame is what a Source can observe about the actor before the tick runs.
type Frame struct {
	Index    int
	Time     float64
	Delta    float64
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Grounded bool
}

type Source interface {
	Poll(f Frame) (State, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(f Frame) (State, error)

func (fn SourceFunc) Poll(f Frame) (State, error) {
	if fn == nil {
		return State{}, ErrNoSource
	}
	return fn(f)
}

type idle struct{}

func (idle) Poll(Frame) (State, error) { return State{}, nil }

// Idle never presses anything.
var Idle Source = idle{}
