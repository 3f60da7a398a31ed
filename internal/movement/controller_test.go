package movement

import (
	"errors"
	"math"
	"testing"

	"github.com/Versifine/strider/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
)

type fakeCharacterController struct {
	grounded      bool
	groundedAfter *bool
	slopeLimit    float64
	skinWidth     float64
	radius        float64
	height        float64
	position      mgl64.Vec3
	up            mgl64.Vec3

	moves []mgl64.Vec3
	hits  [][]physics.Hit
}

func newFakeCharacterController() *fakeCharacterController {
	return &fakeCharacterController{
		slopeLimit: 45,
		skinWidth:  0.08,
		radius:     0.5,
		height:     2,
		position:   mgl64.Vec3{0, 1, 0},
		up:         mgl64.Vec3{0, 1, 0},
	}
}

func (f *fakeCharacterController) Move(motion mgl64.Vec3) []physics.Hit {
	f.moves = append(f.moves, motion)
	f.position = f.position.Add(motion)
	if f.groundedAfter != nil {
		f.grounded = *f.groundedAfter
	}
	if len(f.hits) == 0 {
		return nil
	}
	out := f.hits[0]
	f.hits = f.hits[1:]
	return out
}

func (f *fakeCharacterController) IsGrounded() bool     { return f.grounded }
func (f *fakeCharacterController) SlopeLimit() float64  { return f.slopeLimit }
func (f *fakeCharacterController) SkinWidth() float64   { return f.skinWidth }
func (f *fakeCharacterController) Radius() float64      { return f.radius }
func (f *fakeCharacterController) Height() float64      { return f.height }
func (f *fakeCharacterController) Position() mgl64.Vec3 { return f.position }
func (f *fakeCharacterController) Up() mgl64.Vec3       { return f.up }

func boolPtr(v bool) *bool {
	return &v
}

func approxEqual(t *testing.T, got, want, tol float64, field string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.8f, want %.8f (tol=%.8f)", field, got, want, tol)
	}
}

func approxVec(t *testing.T, got, want mgl64.Vec3, tol float64, field string) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("%s = %v, want %v (tol=%.8f)", field, got, want, tol)
		}
	}
}

var earthGravity = mgl64.Vec3{0, -9.8, 0}

// steepHit is a contact under the foot on a slope tilted by deg degrees toward +X.
func steepHit(f *fakeCharacterController, deg float64) physics.Hit {
	rad := mgl64.DegToRad(deg)
	normal := mgl64.Vec3{math.Sin(rad), math.Cos(rad), 0}
	foot := f.position.Sub(f.up.Mul(f.height/2 - f.radius))
	return physics.Hit{Point: foot.Sub(normal.Mul(f.radius)), Normal: normal}
}

func TestActivateDerivesGravityModel(t *testing.T) {
	tests := []struct {
		name      string
		gravity   mgl64.Vec3
		magnitude float64
		direction mgl64.Vec3
	}{
		{"earth", earthGravity, 9.8, mgl64.Vec3{0, -1, 0}},
		{"sideways", mgl64.Vec3{3, 0, 4}, 5, mgl64.Vec3{0.6, 0, 0.8}},
		{"zero", mgl64.Vec3{}, 0, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newFakeCharacterController())
			c.Activate(tt.gravity)

			g := c.Gravity()
			approxEqual(t, g.Magnitude, tt.magnitude, 1e-12, "magnitude")
			approxVec(t, g.Direction, tt.direction, 1e-12, "direction")
			approxVec(t, c.Surface().Normal, tt.direction.Mul(-1), 1e-12, "surface normal")
			if c.Surface().SlopeAngle != 0 {
				t.Fatalf("slope angle = %v, want 0", c.Surface().SlopeAngle)
			}
		})
	}
}

func TestActivateOnlyOnce(t *testing.T) {
	c := New(newFakeCharacterController())
	c.Activate(earthGravity)
	c.Activate(mgl64.Vec3{0, -1, 0})

	approxEqual(t, c.Gravity().Magnitude, 9.8, 1e-12, "magnitude")
}

func TestConfigureAfterActivate(t *testing.T) {
	c := New(newFakeCharacterController())
	if err := c.Configure(Config{Speed: 5, JumpHeight: 2}); err != nil {
		t.Fatalf("Configure before activation: %v", err)
	}
	c.Activate(earthGravity)
	if err := c.Configure(Config{Speed: 1}); !errors.Is(err, ErrActivated) {
		t.Fatalf("Configure after activation error = %v, want ErrActivated", err)
	}
	if c.Config().Speed != 5 {
		t.Fatalf("speed = %v, want 5", c.Config().Speed)
	}
}

func TestTickZeroDeltaIsNoop(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	c := New(f)
	c.Activate(earthGravity)
	c.SetVelocity(mgl64.Vec3{1, 2, 3})
	c.OnSurfaceContact(steepHit(f, 30))
	before := c.State()

	step := c.Tick(0, Input{Horizontal: 1, Vertical: 1, JumpTriggered: true})

	if step != (Step{}) {
		t.Fatalf("step = %+v, want zero", step)
	}
	if len(f.moves) != 0 {
		t.Fatalf("Move called %d times, want 0", len(f.moves))
	}
	after := c.State()
	if after.Velocity != before.Velocity || after.Surface != before.Surface {
		t.Fatalf("state changed: before %+v after %+v", before, after)
	}
}

func TestTickBeforeActivateIsNoop(t *testing.T) {
	f := newFakeCharacterController()
	c := New(f)

	if step := c.Tick(0.1, Input{Horizontal: 1}); step != (Step{}) {
		t.Fatalf("step = %+v, want zero", step)
	}
	if len(f.moves) != 0 {
		t.Fatalf("Move called before activation")
	}
}

func TestTickDisplacementMatchesKinematicFormula(t *testing.T) {
	tests := []struct {
		name     string
		dt       float64
		input    Input
		velocity mgl64.Vec3
		gravity  mgl64.Vec3
		speed    float64
	}{
		{"walk_diagonal", 0.1, Input{Horizontal: 1, Vertical: 1}, mgl64.Vec3{}, earthGravity, 2},
		{"falling_with_input", 1.0 / 60, Input{Horizontal: -0.5, Vertical: 0.25}, mgl64.Vec3{0.3, -4, 1}, earthGravity, 3.5},
		{"tilted_gravity", 0.02, Input{Vertical: -1}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, -6, 3}, 1},
		{"zero_gravity", 0.05, Input{Horizontal: 1}, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCharacterController()
			c := New(f, WithConfig(Config{Speed: tt.speed, JumpHeight: 1}))
			c.Activate(tt.gravity)
			c.SetVelocity(tt.velocity)

			step := c.Tick(tt.dt, tt.input)

			g := NewGravityModel(tt.gravity)
			input := Right.Mul(tt.input.Horizontal * tt.speed).Add(Forward.Mul(tt.input.Vertical * tt.speed))
			want := input.Add(tt.velocity).Mul(tt.dt).Add(g.Direction.Mul(0.5 * g.Magnitude * tt.dt * tt.dt))
			approxVec(t, step.Move, want, 1e-12, "move")
			approxVec(t, f.moves[0], want, 1e-12, "submitted move")

			wantVel := tt.velocity.Add(g.Direction.Mul(g.Magnitude * tt.dt))
			approxVec(t, c.Velocity(), wantVel, 1e-12, "velocity")
		})
	}
}

func TestTickConcreteWalkScenario(t *testing.T) {
	f := newFakeCharacterController()
	c := New(f, WithConfig(Config{Speed: 2, JumpHeight: 1}))
	c.Activate(earthGravity)

	step := c.Tick(0.1, Input{Horizontal: 1, Vertical: 1})

	approxVec(t, step.Move, mgl64.Vec3{0.2, -0.049, 0.2}, 1e-12, "move")
}

func TestJumpOverwritesVelocity(t *testing.T) {
	tests := []struct {
		name     string
		prior    mgl64.Vec3
		height   float64
		gravity  mgl64.Vec3
		wantJump float64
	}{
		{"from_rest", mgl64.Vec3{}, 1, earthGravity, 4.427188724235731},
		{"discard_fall_speed", mgl64.Vec3{3, -20, -1}, 1, earthGravity, 4.427188724235731},
		{"tall_jump", mgl64.Vec3{0, -1, 0}, 2.5, mgl64.Vec3{0, -20, 0}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCharacterController()
			f.grounded = true
			f.groundedAfter = boolPtr(false)
			c := New(f, WithConfig(Config{Speed: 2, JumpHeight: tt.height}))
			c.Activate(tt.gravity)
			c.SetVelocity(tt.prior)

			dt := 0.01
			step := c.Tick(dt, Input{JumpTriggered: true})

			if !step.Jumped {
				t.Fatalf("Jumped = false, want true")
			}
			g := NewGravityModel(tt.gravity)
			takeoff := g.Up().Mul(tt.wantJump)
			approxVec(t, step.Move, takeoff.Mul(dt).Add(g.Direction.Mul(0.5*g.Magnitude*dt*dt)), 1e-12, "move")
			approxVec(t, c.Velocity(), takeoff.Add(g.Direction.Mul(g.Magnitude*dt)), 1e-12, "velocity")
		})
	}
}

func TestJumpRequiresGroundedAndGravity(t *testing.T) {
	tests := []struct {
		name     string
		grounded bool
		gravity  mgl64.Vec3
	}{
		{"airborne", false, earthGravity},
		{"zero_gravity", true, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCharacterController()
			f.grounded = tt.grounded
			f.groundedAfter = boolPtr(false)
			c := New(f)
			c.Activate(tt.gravity)

			if step := c.Tick(0.02, Input{JumpTriggered: true}); step.Jumped {
				t.Fatalf("Jumped = true, want false")
			}
		})
	}
}

func TestSteepSlopeSlidesAndSuppressesJump(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	c := New(f)
	c.Activate(earthGravity)
	c.OnSurfaceContact(steepHit(f, 60))
	approxEqual(t, c.Surface().SlopeAngle, 60, 1e-9, "slope angle")

	dt := 0.02
	step := c.Tick(dt, Input{JumpTriggered: true})

	if !step.Sliding {
		t.Fatalf("Sliding = false, want true")
	}
	if step.Jumped {
		t.Fatalf("Jumped = true while sliding")
	}

	s, co := math.Sin(mgl64.DegToRad(60)), math.Cos(mgl64.DegToRad(60))
	fall := mgl64.Vec3{co * s, -s * s, 0}
	slide := fall.Mul(9.8 * dt)
	wantMove := slide.Mul(dt).Add(mgl64.Vec3{0, -0.5 * 9.8 * dt * dt, 0})
	approxVec(t, step.Move, wantMove, 1e-12, "move")

	// Grounded but sliding: no ground-stick reset.
	approxVec(t, c.Velocity(), slide.Add(mgl64.Vec3{0, -9.8 * dt, 0}), 1e-12, "velocity")
}

func TestSlopeAtLimitDoesNotSlide(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	c := New(f)
	c.Activate(earthGravity)
	c.OnSurfaceContact(steepHit(f, 30))
	f.slopeLimit = c.Surface().SlopeAngle

	if step := c.Tick(0.02, Input{}); step.Sliding {
		t.Fatalf("Sliding = true at exactly the slope limit")
	}
}

func TestZeroGravityNeverSlides(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	f.slopeLimit = 10
	c := New(f)
	c.Activate(mgl64.Vec3{})
	c.OnSurfaceContact(steepHit(f, 80))

	step := c.Tick(0.1, Input{Vertical: 1, JumpTriggered: true})

	if step.Sliding || step.Jumped {
		t.Fatalf("step = %+v, want no slide and no jump", step)
	}
	approxVec(t, step.Move, mgl64.Vec3{0, 0, 0.2}, 1e-12, "move")
}

func TestGroundStickResetsVelocity(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	f.skinWidth = 0.05
	c := New(f)
	c.Activate(earthGravity)
	c.SetVelocity(mgl64.Vec3{4, 7, -2})

	dt := 0.025
	step := c.Tick(dt, Input{Horizontal: 1})

	if !step.Grounded {
		t.Fatalf("Grounded = false, want true")
	}
	approxVec(t, c.Velocity(), mgl64.Vec3{0, -0.05 / dt, 0}, 1e-12, "velocity")
}

func TestGroundStickUsesPostMoveGrounded(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = false
	f.groundedAfter = boolPtr(true)
	c := New(f)
	c.Activate(earthGravity)
	c.SetVelocity(mgl64.Vec3{0, -3, 0})

	dt := 0.1
	c.Tick(dt, Input{})

	approxVec(t, c.Velocity(), mgl64.Vec3{0, -0.08 / dt, 0}, 1e-12, "velocity")
}

func TestContactClassification(t *testing.T) {
	f := newFakeCharacterController()
	foot := f.position.Sub(f.up.Mul(f.height/2 - f.radius))
	tilted := mgl64.Vec3{1, 1, 0}.Normalize()

	tests := []struct {
		name      string
		point     mgl64.Vec3
		wantAngle float64
		update    bool
	}{
		{"below_foot", foot.Add(mgl64.Vec3{0.2, -0.4, 0}), 45, true},
		{"level_with_foot", foot.Add(mgl64.Vec3{0.5, 0, 0}), 0, false},
		{"side", f.position.Add(mgl64.Vec3{0.5, 0, 0}), 0, false},
		{"head", f.position.Add(mgl64.Vec3{0, 1, 0}), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(f)
			c.Activate(earthGravity)

			c.OnSurfaceContact(physics.Hit{Point: tt.point, Normal: tilted})

			if tt.update {
				approxVec(t, c.Surface().Normal, tilted, 1e-12, "normal")
			} else {
				approxVec(t, c.Surface().Normal, mgl64.Vec3{0, 1, 0}, 1e-12, "normal")
			}
			approxEqual(t, c.Surface().SlopeAngle, tt.wantAngle, 1e-9, "slope angle")
		})
	}
}

func TestContactIgnoredWhenInactive(t *testing.T) {
	f := newFakeCharacterController()

	t.Run("before_activate", func(t *testing.T) {
		c := New(f)
		c.OnSurfaceContact(steepHit(f, 50))
		if c.Surface() != (SurfaceState{}) {
			t.Fatalf("surface = %+v, want zero", c.Surface())
		}
	})

	t.Run("after_release", func(t *testing.T) {
		c := New(f)
		c.Activate(earthGravity)
		c.Release()
		c.OnSurfaceContact(steepHit(f, 50))
		if c.Surface().SlopeAngle != 0 {
			t.Fatalf("slope = %v, want 0", c.Surface().SlopeAngle)
		}
		if step := c.Tick(0.1, Input{Horizontal: 1}); step != (Step{}) {
			t.Fatalf("released Tick step = %+v, want zero", step)
		}
		c.Activate(earthGravity)
		if c.Active() {
			t.Fatalf("released controller reactivated")
		}
	})

	t.Run("nil_controller", func(t *testing.T) {
		var c *Controller
		c.OnSurfaceContact(steepHit(f, 50))
		c.Release()
	})
}

func TestContactsDuringMoveAffectNextTick(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	f.groundedAfter = boolPtr(true)
	f.hits = [][]physics.Hit{{steepHit(f, 70)}}
	c := New(f)
	c.Activate(earthGravity)

	first := c.Tick(0.02, Input{})
	if first.Sliding {
		t.Fatalf("first tick sliding; sliding must be latched before the move")
	}
	approxEqual(t, c.Surface().SlopeAngle, 70, 1e-9, "slope after first tick")

	second := c.Tick(0.02, Input{})
	if !second.Sliding {
		t.Fatalf("second tick not sliding after steep contact")
	}
}

func TestStaleSurfaceKeepsSliding(t *testing.T) {
	f := newFakeCharacterController()
	f.grounded = true
	c := New(f)
	c.Activate(earthGravity)
	c.OnSurfaceContact(steepHit(f, 60))

	// Airborne ticks with no contacts do not clear the remembered slope.
	f.grounded = false
	for i := 0; i < 10; i++ {
		c.Tick(0.02, Input{})
	}
	f.grounded = true

	if step := c.Tick(0.02, Input{JumpTriggered: true}); !step.Sliding || step.Jumped {
		t.Fatalf("step = %+v, want sliding on the remembered slope", step)
	}
}
