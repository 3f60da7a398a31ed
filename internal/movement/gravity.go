package movement

import "github.com/go-gl/mathgl/mgl64"

// GravityModel is the constant global gravity split into magnitude and unit
// direction. Direction is the zero vector when Magnitude is 0.
type GravityModel struct {
	Magnitude float64
	Direction mgl64.Vec3
}

func NewGravityModel(g mgl64.Vec3) GravityModel {
	m := g.Len()
	if m > 0 {
		return GravityModel{Magnitude: m, Direction: g.Mul(1 / m)}
	}
	return GravityModel{}
}

// Enabled reports whether jumping, falling and sliding are possible.
func (g GravityModel) Enabled() bool {
	return g.Magnitude > 0
}

// Up points away from gravity.
func (g GravityModel) Up() mgl64.Vec3 {
	return g.Direction.Mul(-1)
}
