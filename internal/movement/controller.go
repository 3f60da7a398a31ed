// Package movement integrates walking, jumping, falling and slope sliding for a
// single capsule actor. Collision sweeping is delegated to a CharacterController.
package movement

import (
	"errors"
	"log/slog"
	"math"

	"github.com/Versifine/strider/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrActivated = errors.New("movement: controller already activated")

// World axes the input axes map onto.
var (
	Right   = mgl64.Vec3{1, 0, 0}
	Forward = mgl64.Vec3{0, 0, 1}
)

const (
	DefaultSpeed      = 2.0
	DefaultJumpHeight = 1.0
)

// CharacterController is the collision-sweep primitive that owns the actor's
// collider. Move returns the contacts produced by the sweep in the order they
// happened.
type CharacterController interface {
	Move(motion mgl64.Vec3) []physics.Hit
	IsGrounded() bool
	SlopeLimit() float64
	SkinWidth() float64
	Radius() float64
	Height() float64
	Position() mgl64.Vec3
	Up() mgl64.Vec3
}

type Config struct {
	Speed      float64 // horizontal move rate, m/s
	JumpHeight float64 // apex height above takeoff, m
}

func DefaultConfig() Config {
	return Config{Speed: DefaultSpeed, JumpHeight: DefaultJumpHeight}
}

// Input is one tick of polled input. JumpTriggered is true only on the frame
// the jump button went down.
type Input struct {
	Horizontal    float64
	Vertical      float64
	JumpTriggered bool
}

// Step is the outcome of one Tick. Move is the displacement handed to the
// CharacterController.
type Step struct {
	Move     mgl64.Vec3
	Sliding  bool
	Jumped   bool
	Grounded bool
}

type State struct {
	Active   bool
	Velocity mgl64.Vec3
	Surface  SurfaceState
	Gravity  GravityModel
	Last     Step
}

type Option func(*Controller)

func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

type Controller struct {
	cc       CharacterController
	cfg      Config
	gravity  GravityModel
	surface  SurfaceState
	velocity mgl64.Vec3
	last     Step
	active   bool
	released bool
}

func New(cc CharacterController, opts ...Option) *Controller {
	c := &Controller{cc: cc, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure replaces the configuration. It is rejected once Activate has run.
func (c *Controller) Configure(cfg Config) error {
	if c.active || c.released {
		return ErrActivated
	}
	c.cfg = cfg
	return nil
}

// Activate derives the gravity model and resets the surface to "up". Only the
// first call has any effect.
func (c *Controller) Activate(gravity mgl64.Vec3) {
	if c == nil || c.active || c.released {
		return
	}
	c.gravity = NewGravityModel(gravity)
	c.surface = SurfaceState{Normal: c.gravity.Up(), SlopeAngle: 0}
	c.active = true
	slog.Debug("movement controller activated",
		"gravity", c.gravity.Magnitude,
		"speed", c.cfg.Speed,
		"jump_height", c.cfg.JumpHeight,
	)
}

// Tick advances the actor by dt seconds. A non-positive dt leaves every piece
// of state untouched and returns a zero Step.
func (c *Controller) Tick(dt float64, in Input) Step {
	if c == nil || !c.active || c.cc == nil || dt <= 0 {
		return Step{}
	}

	g := c.gravity
	sliding := false
	jumped := false

	if g.Enabled() && c.cc.IsGrounded() {
		sliding = c.surface.SlopeAngle > c.cc.SlopeLimit()

		if !sliding && in.JumpTriggered {
			// v = sqrt(2gh), replacing whatever fall or slide speed was there.
			up := math.Sqrt(2 * c.cfg.JumpHeight * g.Magnitude)
			c.velocity = g.Up().Mul(up)
			jumped = true
		}

		if sliding {
			right := g.Direction.Cross(c.surface.Normal)
			fall := c.surface.Normal.Cross(right)
			c.velocity = c.velocity.Add(fall.Mul(g.Magnitude * dt))
		}
	}

	input := Right.Mul(in.Horizontal * c.cfg.Speed).Add(Forward.Mul(in.Vertical * c.cfg.Speed))

	// d = vt + 1/2at^2
	move := input.Add(c.velocity).Mul(dt).Add(g.Direction.Mul(0.5 * g.Magnitude * dt * dt))
	// v = u + at
	c.velocity = c.velocity.Add(g.Direction.Mul(g.Magnitude * dt))

	for _, hit := range c.cc.Move(move) {
		c.OnSurfaceContact(hit)
	}

	grounded := c.cc.IsGrounded()
	if grounded && !sliding {
		// Keep pressing into the ground so the skin gap does not leave the
		// actor hovering.
		c.velocity = g.Direction.Mul(c.cc.SkinWidth() / dt)
	}

	step := Step{Move: move, Sliding: sliding, Jumped: jumped, Grounded: grounded}
	c.logTransitions(step)
	c.last = step
	return step
}

// OnSurfaceContact records hit as the current ground surface when it lies
// beyond the foot centre in the direction of gravity. Side and head contacts
// are ignored, as is any contact arriving before activation or after release.
func (c *Controller) OnSurfaceContact(hit physics.Hit) {
	if c == nil || !c.active || c.released || c.cc == nil {
		return
	}

	r := c.cc.Radius()
	h := c.cc.Height()*0.5 - r
	foot := c.cc.Position().Add(c.cc.Up().Mul(-h))

	toContact := hit.Point.Sub(foot)
	if c.gravity.Direction.Dot(toContact) <= 0 {
		return
	}
	c.surface = SurfaceState{
		Normal:     hit.Normal,
		SlopeAngle: AngleBetween(hit.Normal, c.gravity.Up()),
	}
}

// Release detaches the controller; later ticks and contacts are no-ops.
func (c *Controller) Release() {
	if c == nil {
		return
	}
	c.released = true
	c.active = false
}

// SetVelocity overrides the accumulated non-input velocity.
func (c *Controller) SetVelocity(v mgl64.Vec3) {
	if c == nil {
		return
	}
	c.velocity = v
}

func (c *Controller) Velocity() mgl64.Vec3  { return c.velocity }
func (c *Controller) Surface() SurfaceState { return c.surface }
func (c *Controller) Gravity() GravityModel { return c.gravity }
func (c *Controller) Config() Config        { return c.cfg }
func (c *Controller) Active() bool          { return c.active }

func (c *Controller) State() State {
	return State{
		Active:   c.active,
		Velocity: c.velocity,
		Surface:  c.surface,
		Gravity:  c.gravity,
		Last:     c.last,
	}
}

func (c *Controller) logTransitions(step Step) {
	if step.Jumped {
		slog.Debug("movement jump", "velocity", c.velocity.Len())
	}
	if step.Sliding != c.last.Sliding {
		slog.Debug("movement sliding changed", "sliding", step.Sliding, "slope", c.surface.SlopeAngle)
	}
	if step.Grounded && !c.last.Grounded {
		slog.Debug("movement landed", "slope", c.surface.SlopeAngle)
	}
}
