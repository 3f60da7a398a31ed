package body

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Versifine/strider/internal/input"
	"github.com/Versifine/strider/internal/movement"
	"github.com/Versifine/strider/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
)

// StateUpdater is told about every tick's result.
type StateUpdater interface {
	UpdateState(s Snapshot)
}

// Snapshot is a consistent copy of everything observable about the actor.
type Snapshot struct {
	Position   mgl64.Vec3
	Velocity   mgl64.Vec3
	Grounded   bool
	Sliding    bool
	Jumped     bool
	SlopeAngle float64
	Normal     mgl64.Vec3
	Hits       []physics.Hit
	Active     bool
}

// Body owns one capsule and the movement controller driving it. All methods
// are safe for concurrent use.
type Body struct {
	mu           sync.Mutex
	capsule      *physics.Capsule
	controller   *movement.Controller
	edge         input.Edge
	last         movement.Step
	hits         []physics.Hit
	stateUpdater StateUpdater
}

// New builds the controller for capsule, configures it with cfg and activates
// it with gravity.
func New(capsule *physics.Capsule, cfg movement.Config, gravity mgl64.Vec3) (*Body, error) {
	if capsule == nil {
		return nil, fmt.Errorf("body: capsule is nil")
	}
	b := &Body{capsule: capsule}
	b.controller = movement.New(&recordingCapsule{Capsule: capsule, body: b})
	if err := b.controller.Configure(cfg); err != nil {
		return nil, fmt.Errorf("body: configure controller: %w", err)
	}
	b.controller.Activate(gravity)
	slog.Debug("body created", "position", capsule.Position(), "gravity", gravity)
	return b, nil
}

func (b *Body) SetStateUpdater(u StateUpdater) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.stateUpdater = u
	b.mu.Unlock()
}

// Tick advances the actor by dt seconds with the given held input.
func (b *Body) Tick(dt float64, in InputState) movement.Step {
	if b == nil {
		return movement.Step{}
	}

	b.mu.Lock()
	b.hits = b.hits[:0]
	var step movement.Step
	if dt > 0 {
		step = b.controller.Tick(dt, b.edge.Apply(in))
		b.last = step
	}
	snap := b.snapshotLocked()
	updater := b.stateUpdater
	b.mu.Unlock()

	if updater != nil {
		updater.UpdateState(snap)
	}
	return step
}

func (b *Body) Snapshot() Snapshot {
	if b == nil {
		return Snapshot{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Body) snapshotLocked() Snapshot {
	surface := b.controller.Surface()
	return Snapshot{
		Position:   b.capsule.Position(),
		Velocity:   b.controller.Velocity(),
		Grounded:   b.capsule.IsGrounded(),
		Sliding:    b.last.Sliding,
		Jumped:     b.last.Jumped,
		SlopeAngle: surface.SlopeAngle,
		Normal:     surface.Normal,
		Hits:       append([]physics.Hit(nil), b.hits...),
		Active:     b.controller.Active(),
	}
}

// SetLocalPosition teleports the actor and clears its velocity.
func (b *Body) SetLocalPosition(pos mgl64.Vec3) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.capsule.Teleport(pos)
	b.controller.SetVelocity(mgl64.Vec3{})
	b.edge.Reset()
	snap := b.snapshotLocked()
	updater := b.stateUpdater
	b.mu.Unlock()

	slog.Debug("body teleported", "position", pos)
	if updater != nil {
		updater.UpdateState(snap)
	}
}

// Release detaches the controller. Later ticks leave the actor where it is.
func (b *Body) Release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.controller.Release()
}

func (b *Body) Config() movement.Config {
	if b == nil {
		return movement.Config{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.controller.Config()
}

func (b *Body) SlopeLimit() float64 {
	if b == nil {
		return 0
	}
	return b.capsule.SlopeLimit()
}

// recordingCapsule keeps the hits of the current tick for the snapshot. It
// is only called from Tick with b.mu held.
type recordingCapsule struct {
	*physics.Capsule
	body *Body
}

func (r *recordingCapsule) Move(motion mgl64.Vec3) []physics.Hit {
	hits := r.Capsule.Move(motion)
	r.body.hits = append(r.body.hits, hits...)
	return hits
}
