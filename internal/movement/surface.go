package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const angleEpsilon = 1e-15

// SurfaceState is the most recent contact classified as ground. It is not
// cleared between ticks, so a surface touched several frames ago keeps gating
// sliding and jumping until another ground contact replaces it.
type SurfaceState struct {
	Normal     mgl64.Vec3
	SlopeAngle float64
}

// AngleBetween returns the unsigned angle in degrees between a and b, or 0 when
// either vector has no length.
func AngleBetween(a, b mgl64.Vec3) float64 {
	denom := math.Sqrt(a.LenSqr() * b.LenSqr())
	if denom < angleEpsilon {
		return 0
	}
	cos := mgl64.Clamp(a.Dot(b)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}
