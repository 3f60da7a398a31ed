package sim

import "time"

// Clock supplies the time step for each frame.
type Clock interface {
	Next() float64
}

// FixedClock returns a constant step, except on pause frames where it
// returns 0.
type FixedClock struct {
	dt     float64
	pauses map[int]struct{}
	frame  int
}

func NewFixedClock(dt float64, pauseFrames ...int) *FixedClock {
	pauses := make(map[int]struct{}, len(pauseFrames))
	for _, f := range pauseFrames {
		pauses[f] = struct{}{}
	}
	return &FixedClock{dt: dt, pauses: pauses}
}

func (c *FixedClock) Next() float64 {
	frame := c.frame
	c.frame++
	if _, ok := c.pauses[frame]; ok {
		return 0
	}
	return c.dt
}

const DefaultMaxWallStep = 0.25

// WallClock measures real elapsed time between calls. The first call
// returns 0 and long stalls are capped at MaxStep.
type WallClock struct {
	MaxStep float64
	now     func() time.Time
	last    time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{MaxStep: DefaultMaxWallStep, now: time.Now}
}

func (c *WallClock) Next() float64 {
	now := c.now()
	if c.last.IsZero() {
		c.last = now
		return 0
	}
	dt := now.Sub(c.last).Seconds()
	c.last = now
	if dt < 0 {
		return 0
	}
	if c.MaxStep > 0 && dt > c.MaxStep {
		return c.MaxStep
	}
	return dt
}
