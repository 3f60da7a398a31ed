package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/Versifine/strider/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
)

var ErrExpectation = errors.New("sim: expectation failed")

type Summary struct {
	RunID         string
	Scene         string
	Frames        int
	PauseFrames   int
	Duration      float64
	Start         mgl64.Vec3
	Final         mgl64.Vec3
	MinY          float64
	MaxY          float64
	Distance      float64
	Jumps         int
	Landings      int
	SlideFrames   int
	FinalGrounded bool
	FinalSliding  bool
	TracePath     string
}

func newSummary(runID, name string, start mgl64.Vec3) Summary {
	return Summary{
		RunID: runID,
		Scene: name,
		Start: start,
		Final: start,
		MinY:  start.Y(),
		MaxY:  start.Y(),
	}
}

func (s *Summary) observe(rec FrameRecord) {
	s.Frames++
	if rec.DT <= 0 {
		s.PauseFrames++
	}
	s.Duration = rec.Time
	flat := mgl64.Vec3{rec.Position.X() - s.Final.X(), 0, rec.Position.Z() - s.Final.Z()}
	s.Distance += flat.Len()
	s.Final = rec.Position
	s.MinY = math.Min(s.MinY, rec.Position.Y())
	s.MaxY = math.Max(s.MaxY, rec.Position.Y())
	if rec.Jumped {
		s.Jumps++
	}
	if rec.Sliding && rec.DT > 0 {
		s.SlideFrames++
	}
	s.FinalGrounded = rec.Grounded
	s.FinalSliding = rec.Sliding
}

// Check compares the summary with e. Every failed expectation is reported.
func (s Summary) Check(e scene.Expect) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrExpectation, fmt.Sprintf(format, args...)))
	}
	if e.Grounded != nil && s.FinalGrounded != *e.Grounded {
		fail("grounded = %v, want %v", s.FinalGrounded, *e.Grounded)
	}
	if e.Sliding != nil && s.FinalSliding != *e.Sliding {
		fail("sliding = %v, want %v", s.FinalSliding, *e.Sliding)
	}
	if e.MinY != nil && s.MinY < *e.MinY {
		fail("lowest y %.4f is below %.4f", s.MinY, *e.MinY)
	}
	if e.MaxY != nil && s.MaxY > *e.MaxY {
		fail("highest y %.4f is above %.4f", s.MaxY, *e.MaxY)
	}
	if e.MinJumps != nil && s.Jumps < *e.MinJumps {
		fail("jumps = %d, want at least %d", s.Jumps, *e.MinJumps)
	}
	return errors.Join(errs...)
}
