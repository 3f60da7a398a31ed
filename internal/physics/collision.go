package physics

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

type BlockStore interface {
	IsSolid(x, y, z int) bool
}

type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func (b AABB) Expand(d float64) AABB {
	return AABB{
		Min: b.Min.Sub(mgl64.Vec3{d, d, d}),
		Max: b.Max.Add(mgl64.Vec3{d, d, d}),
	}
}

func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X() < o.Max.X() &&
		b.Max.X() > o.Min.X() &&
		b.Min.Y() < o.Max.Y() &&
		b.Max.Y() > o.Min.Y() &&
		b.Min.Z() < o.Max.Z() &&
		b.Max.Z() > o.Min.Z()
}

// ClosestPoint clamps p into the box.
func (b AABB) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(p.X(), b.Min.X(), b.Max.X()),
		mgl64.Clamp(p.Y(), b.Min.Y(), b.Max.Y()),
		mgl64.Clamp(p.Z(), b.Min.Z(), b.Max.Z()),
	}
}

func (b AABB) Contains(p mgl64.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Plane is a solid half-space: everything on the negative side of Normal is
// inside the surface.
type Plane struct {
	Name   string
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// NewPlane normalizes normal. A zero normal is rejected.
func NewPlane(name string, point, normal mgl64.Vec3) (Plane, error) {
	l := normal.Len()
	if l < CollisionAxisTolerance {
		return Plane{}, fmt.Errorf("physics: plane %q has zero normal", name)
	}
	return Plane{Name: name, Point: point, Normal: normal.Mul(1 / l)}, nil
}

func (p Plane) Distance(q mgl64.Vec3) float64 {
	return q.Sub(p.Point).Dot(p.Normal)
}

type Box struct {
	Name   string
	Bounds AABB
}

// World is the static geometry a capsule sweeps against.
type World struct {
	Planes []Plane
	Boxes  []Box
	Blocks BlockStore
}

// contact is the closest approach between a capsule core segment and a surface.
// distance is negative when the segment passes through the surface.
type contact struct {
	surface  string
	point    mgl64.Vec3
	normal   mgl64.Vec3
	distance float64
}

func (w *World) contacts(a, b mgl64.Vec3, reach float64) []contact {
	if w == nil {
		return nil
	}

	var out []contact
	for _, p := range w.Planes {
		if c, ok := segmentPlaneContact(a, b, p); ok && c.distance < reach-ContactTolerance {
			out = append(out, c)
		}
	}

	bounds := segmentBounds(a, b).Expand(reach)
	for _, box := range w.Boxes {
		if !box.Bounds.Intersects(bounds) {
			continue
		}
		if c, ok := segmentBoxContact(a, b, box.Bounds, box.Name); ok && c.distance < reach-ContactTolerance {
			out = append(out, c)
		}
	}

	if w.Blocks != nil {
		out = append(out, blockContacts(w.Blocks, a, b, bounds, reach)...)
	}

	// Deepest first, so the surface actually carrying the capsule is resolved
	// before the edges of its neighbours.
	slices.SortStableFunc(out, func(x, y contact) int {
		return cmp.Compare(x.distance, y.distance)
	})
	return out
}

func blockContacts(blocks BlockStore, a, b mgl64.Vec3, bounds AABB, reach float64) []contact {
	var out []contact
	minX := floorForMin(bounds.Min.X())
	maxX := floorForMax(bounds.Max.X())
	minY := floorForMin(bounds.Min.Y())
	maxY := floorForMax(bounds.Max.Y())
	minZ := floorForMin(bounds.Min.Z())
	maxZ := floorForMax(bounds.Max.Z())
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				if !blocks.IsSolid(x, y, z) {
					continue
				}
				block := AABB{
					Min: mgl64.Vec3{float64(x), float64(y), float64(z)},
					Max: mgl64.Vec3{float64(x + 1), float64(y + 1), float64(z + 1)},
				}
				name := fmt.Sprintf("block(%d,%d,%d)", x, y, z)
				if c, ok := segmentBoxContact(a, b, block, name); ok && c.distance < reach-ContactTolerance {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func segmentPlaneContact(a, b mgl64.Vec3, p Plane) (contact, bool) {
	da := p.Distance(a)
	db := p.Distance(b)

	closest := a
	d := da
	switch {
	case nearlyEqual(da, db):
		closest = a.Add(b).Mul(0.5)
	case db < da:
		closest = b
		d = db
	}

	return contact{
		surface:  p.Name,
		point:    closest.Sub(p.Normal.Mul(d)),
		normal:   p.Normal,
		distance: d,
	}, true
}

func segmentBoxContact(a, b mgl64.Vec3, box AABB, name string) (contact, bool) {
	// Alternating projection between two convex sets converges on the pair of
	// closest points.
	q := box.ClosestPoint(a.Add(b).Mul(0.5))
	for i := 0; i < closestPointIterations; i++ {
		next := box.ClosestPoint(ClosestPointOnSegment(a, b, q))
		if next.ApproxEqualThreshold(q, CollisionAxisTolerance) {
			break
		}
		q = next
	}
	p := ClosestPointOnSegment(a, b, q)
	delta := p.Sub(q)
	d := delta.Len()
	if d > CollisionAxisTolerance {
		return contact{surface: name, point: q, normal: delta.Mul(1 / d), distance: d}, true
	}

	// The core segment passes through the box: push out through the nearest face.
	normal, depth := nearestFace(box, p)
	return contact{
		surface:  name,
		point:    p.Add(normal.Mul(depth)),
		normal:   normal,
		distance: -depth,
	}, true
}

func nearestFace(box AABB, p mgl64.Vec3) (mgl64.Vec3, float64) {
	best := math.Inf(1)
	var normal mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		if d := box.Max[axis] - p[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = 1
		}
		if d := p[axis] - box.Min[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = -1
		}
	}
	return normal, best
}

// ClosestPointOnSegment returns the point of segment ab nearest to p.
func ClosestPointOnSegment(a, b, p mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	l2 := ab.LenSqr()
	if l2 < CollisionAxisTolerance {
		return a
	}
	t := mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t))
}

func segmentBounds(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.X(), b.X()), math.Min(a.Y(), b.Y()), math.Min(a.Z(), b.Z())},
		Max: mgl64.Vec3{math.Max(a.X(), b.X()), math.Max(a.Y(), b.Y()), math.Max(a.Z(), b.Z())},
	}
}

func floorForMin(v float64) int {
	return int(math.Floor(v + CollisionAxisTolerance))
}

func floorForMax(v float64) int {
	return int(math.Floor(v - CollisionAxisTolerance))
}

func nearlyZero(v float64) bool {
	return math.Abs(v) <= CollisionAxisTolerance
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= CollisionAxisTolerance
}
