package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b mgl64.Vec3
		want float64
	}{
		{"same", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 3, 0}, 0},
		{"perpendicular", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, 90},
		{"opposite", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -2, 0}, 180},
		{"diagonal", mgl64.Vec3{1, 1, 0}, mgl64.Vec3{0, 1, 0}, 45},
		{"zero_a", mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 0},
		{"zero_b", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 0},
		{"tiny", mgl64.Vec3{1e-9, 0, 0}, mgl64.Vec3{0, 1e-9, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approxEqual(t, AngleBetween(tt.a, tt.b), tt.want, 1e-9, "angle")
		})
	}
}

func TestGravityModelUp(t *testing.T) {
	g := NewGravityModel(mgl64.Vec3{0, 0, -4})
	if !g.Enabled() {
		t.Fatalf("Enabled = false, want true")
	}
	approxVec(t, g.Up(), mgl64.Vec3{0, 0, 1}, 1e-12, "up")

	if NewGravityModel(mgl64.Vec3{}).Enabled() {
		t.Fatalf("zero gravity Enabled = true")
	}
}
