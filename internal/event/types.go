package event

import "github.com/go-gl/mathgl/mgl64"

const (
	EventJump       = "movement.jump"
	EventLand       = "movement.land"
	EventSlideStart = "movement.slide.start"
	EventSlideStop  = "movement.slide.stop"
	EventContact    = "movement.contact"
)

// MovementEvent carries the actor state on the frame an event fired.
type MovementEvent struct {
	RunID      string
	Frame      int
	Time       float64
	Position   mgl64.Vec3
	Velocity   mgl64.Vec3
	SlopeAngle float64
}

type ContactEvent struct {
	RunID   string
	Frame   int
	Surface string
	Point   mgl64.Vec3
	Normal  mgl64.Vec3
}
