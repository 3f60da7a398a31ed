package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Versifine/strider/internal/body"
	"github.com/Versifine/strider/internal/event"
	"github.com/Versifine/strider/internal/input"
	"github.com/Versifine/strider/internal/scene"
	"github.com/google/uuid"
)

// Runner drives one scene instance frame by frame.
type Runner struct {
	runID string
	inst  *scene.Instance
	clock Clock
	bus   *event.Bus
	trace *Trace
	ticks int
}

type Option func(*Runner)

func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func WithBus(b *event.Bus) Option {
	return func(r *Runner) { r.bus = b }
}

func WithTrace(t *Trace) Option {
	return func(r *Runner) { r.trace = t }
}

func WithTicks(n int) Option {
	return func(r *Runner) { r.ticks = n }
}

func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

func NewRunner(inst *scene.Instance, opts ...Option) *Runner {
	r := &Runner{inst: inst, runID: uuid.NewString()}
	if inst != nil && inst.Scene != nil {
		r.clock = NewFixedClock(inst.Scene.DT, inst.Scene.PauseFrames...)
		r.ticks = inst.Scene.Ticks
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) RunID() string { return r.runID }

// Run executes the scene until its tick count is reached or ctx is done.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.inst == nil || r.inst.Body == nil || r.inst.Scene == nil {
		return Summary{}, fmt.Errorf("sim: runner has no scene instance")
	}
	if r.clock == nil {
		return Summary{}, fmt.Errorf("sim: runner has no clock")
	}
	src := r.inst.Source
	if src == nil {
		return Summary{}, fmt.Errorf("sim: scene %s: %w", r.inst.Scene.Name, input.ErrNoSource)
	}

	b := r.inst.Body
	prev := b.Snapshot()
	sum := newSummary(r.runID, r.inst.Scene.Name, prev.Position)
	sum.TracePath = r.trace.Path()
	now := 0.0

	slog.Debug("run started", "run_id", r.runID, "scene", r.inst.Scene.Name, "ticks", r.ticks)
	for i := 0; i < r.ticks; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		dt := r.clock.Next()
		frame := input.Frame{
			Index:    i,
			Time:     now,
			Delta:    dt,
			Position: prev.Position,
			Velocity: prev.Velocity,
			Grounded: prev.Grounded,
		}
		st, err := src.Poll(frame)
		if err != nil {
			return sum, fmt.Errorf("sim: poll input: %w", err)
		}

		step := b.Tick(dt, st)
		snap := b.Snapshot()
		if dt > 0 {
			now += dt
		}

		rec := FrameRecord{
			RunID:      r.runID,
			Frame:      i,
			Time:       now,
			DT:         dt,
			Input:      st.Clamped(),
			Move:       step.Move,
			Position:   snap.Position,
			Velocity:   snap.Velocity,
			Grounded:   snap.Grounded,
			Sliding:    snap.Sliding,
			Jumped:     step.Jumped,
			SlopeAngle: snap.SlopeAngle,
		}
		for _, h := range snap.Hits {
			rec.Hits = append(rec.Hits, h.Surface)
		}
		if err := r.trace.Write(rec); err != nil {
			return sum, err
		}
		sum.observe(rec)
		if dt > 0 {
			r.publish(rec, prev, snap, &sum)
			prev = snap
		}
	}

	slog.Info("run finished",
		"run_id", r.runID,
		"scene", r.inst.Scene.Name,
		"frames", sum.Frames,
		"jumps", sum.Jumps,
		"grounded", sum.FinalGrounded,
	)
	return sum, nil
}

func (r *Runner) publish(rec FrameRecord, prev, cur body.Snapshot, sum *Summary) {
	mv := event.MovementEvent{
		RunID:      r.runID,
		Frame:      rec.Frame,
		Time:       rec.Time,
		Position:   cur.Position,
		Velocity:   cur.Velocity,
		SlopeAngle: cur.SlopeAngle,
	}
	if rec.Jumped {
		r.bus.Publish(event.EventJump, mv)
	}
	if cur.Grounded && !prev.Grounded {
		sum.Landings++
		r.bus.Publish(event.EventLand, mv)
	}
	if rec.Sliding && !prev.Sliding {
		r.bus.Publish(event.EventSlideStart, mv)
	}
	if !rec.Sliding && prev.Sliding {
		r.bus.Publish(event.EventSlideStop, mv)
	}
	for _, h := range cur.Hits {
		r.bus.Publish(event.EventContact, event.ContactEvent{
			RunID:   r.runID,
			Frame:   rec.Frame,
			Surface: h.Surface,
			Point:   h.Point,
			Normal:  h.Normal,
		})
	}
}
