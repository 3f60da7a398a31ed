package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidCapsule = errors.New("physics: invalid capsule")

// Hit describes one surface touched during a Move.
type Hit struct {
	Surface       string
	Point         mgl64.Vec3
	Normal        mgl64.Vec3
	MoveDirection mgl64.Vec3
	MoveLength    float64
}

type CapsuleConfig struct {
	Radius     float64
	Height     float64
	SkinWidth  float64
	SlopeLimit float64
	Up         mgl64.Vec3
}

func DefaultCapsuleConfig() CapsuleConfig {
	return CapsuleConfig{
		Radius:     DefaultRadius,
		Height:     DefaultHeight,
		SkinWidth:  DefaultSkinWidth,
		SlopeLimit: DefaultSlopeLimit,
		Up:         mgl64.Vec3{0, 1, 0},
	}
}

// Capsule is a kinematic character collider. Move sweeps it through a World,
// keeping SkinWidth between the collider and every surface it touches.
type Capsule struct {
	cfg      CapsuleConfig
	position mgl64.Vec3
	world    *World
	grounded bool
}

func NewCapsule(cfg CapsuleConfig, position mgl64.Vec3, world *World) (*Capsule, error) {
	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("%w: radius %.3f", ErrInvalidCapsule, cfg.Radius)
	}
	if cfg.Height < 2*cfg.Radius {
		return nil, fmt.Errorf("%w: height %.3f below diameter %.3f", ErrInvalidCapsule, cfg.Height, 2*cfg.Radius)
	}
	if cfg.SkinWidth < 0 {
		return nil, fmt.Errorf("%w: skin width %.3f", ErrInvalidCapsule, cfg.SkinWidth)
	}
	up := cfg.Up
	if up.Len() < CollisionAxisTolerance {
		up = mgl64.Vec3{0, 1, 0}
	}
	cfg.Up = up.Normalize()
	return &Capsule{cfg: cfg, position: position, world: world}, nil
}

// Move translates the capsule by motion and pushes it out of any surface it
// ends up closer to than radius plus skin width. The returned hits are in the
// order the surfaces were first touched.
func (c *Capsule) Move(motion mgl64.Vec3) []Hit {
	if c == nil {
		return nil
	}
	c.grounded = false
	c.position = c.position.Add(motion)
	if c.world == nil {
		return nil
	}

	moveLength := motion.Len()
	var moveDir mgl64.Vec3
	if !nearlyZero(moveLength) {
		moveDir = motion.Mul(1 / moveLength)
	}

	reach := c.cfg.Radius + c.cfg.SkinWidth
	var hits []Hit
	seen := make(map[string]int)

	for i := 0; i < MaxResolveIterations; i++ {
		foot, head := c.segment()
		contacts := c.world.contacts(foot, head, reach)
		if len(contacts) == 0 {
			break
		}
		for _, ct := range contacts {
			// Earlier pushes in this pass may already have cleared this one.
			foot, head = c.segment()
			fresh, ok := c.refresh(ct.surface, foot, head)
			if !ok || fresh.distance >= reach-ContactTolerance {
				continue
			}
			c.position = c.position.Add(fresh.normal.Mul(reach - fresh.distance))

			hit := Hit{
				Surface:       fresh.surface,
				Point:         fresh.point,
				Normal:        fresh.normal,
				MoveDirection: moveDir,
				MoveLength:    moveLength,
			}
			if idx, ok := seen[fresh.surface]; ok {
				hits[idx] = hit
			} else {
				seen[fresh.surface] = len(hits)
				hits = append(hits, hit)
			}
			if c.belowFoot(fresh.point, foot) {
				c.grounded = true
			}
		}
	}
	return hits
}

func (c *Capsule) refresh(surface string, foot, head mgl64.Vec3) (contact, bool) {
	for _, fresh := range c.world.contacts(foot, head, c.cfg.Radius+c.cfg.SkinWidth) {
		if fresh.surface == surface {
			return fresh, true
		}
	}
	return contact{}, false
}

func (c *Capsule) belowFoot(point, foot mgl64.Vec3) bool {
	return point.Sub(foot).Dot(c.cfg.Up) < -ContactTolerance
}

// segment returns the centres of the lower and upper hemisphere caps.
func (c *Capsule) segment() (mgl64.Vec3, mgl64.Vec3) {
	half := c.cfg.Height/2 - c.cfg.Radius
	offset := c.cfg.Up.Mul(half)
	return c.position.Sub(offset), c.position.Add(offset)
}

// FootCenter is the centre of the lower hemisphere cap.
func (c *Capsule) FootCenter() mgl64.Vec3 {
	foot, _ := c.segment()
	return foot
}

func (c *Capsule) Bounds() AABB {
	foot, head := c.segment()
	return segmentBounds(foot, head).Expand(c.cfg.Radius)
}

// Teleport places the capsule without collision and clears the grounded flag.
func (c *Capsule) Teleport(position mgl64.Vec3) {
	c.position = position
	c.grounded = false
}

func (c *Capsule) IsGrounded() bool     { return c.grounded }
func (c *Capsule) SlopeLimit() float64  { return c.cfg.SlopeLimit }
func (c *Capsule) SkinWidth() float64   { return c.cfg.SkinWidth }
func (c *Capsule) Radius() float64      { return c.cfg.Radius }
func (c *Capsule) Height() float64      { return c.cfg.Height }
func (c *Capsule) Position() mgl64.Vec3 { return c.position }
func (c *Capsule) Up() mgl64.Vec3       { return c.cfg.Up }
func (c *Capsule) World() *World        { return c.world }
