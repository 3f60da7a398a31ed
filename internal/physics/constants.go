package physics

const (
	DefaultRadius     = 0.5
	DefaultHeight     = 2.0
	DefaultSkinWidth  = 0.08
	DefaultSlopeLimit = 45.0

	MaxResolveIterations   = 4
	ContactTolerance       = 1e-6
	CollisionAxisTolerance = 1e-9

	closestPointIterations = 8
)
