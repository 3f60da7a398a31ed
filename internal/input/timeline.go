package input

import (
	"slices"
	"sort"
)

// Key sets the input from time At until the next key.
type Key struct {
	At         float64
	Horizontal float64
	Vertical   float64
	Jump       bool
}

// Timeline replays keyframed input against simulation time.
type Timeline struct {
	keys []Key
}

func NewTimeline(keys []Key) *Timeline {
	sorted := slices.Clone(keys)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})
	return &Timeline{keys: sorted}
}

func (t *Timeline) Poll(f Frame) (State, error) {
	if t == nil {
		return State{}, ErrNoSource
	}
	i := sort.Search(len(t.keys), func(i int) bool {
		return t.keys[i].At > f.Time
	})
	if i == 0 {
		return State{}, nil
	}
	k := t.keys[i-1]
	return State{Horizontal: k.Horizontal, Vertical: k.Vertical, Jump: k.Jump}.Clamped(), nil
}

func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// End is the time of the last key.
func (t *Timeline) End() float64 {
	if t == nil || len(t.keys) == 0 {
		return 0
	}
	return t.keys[len(t.keys)-1].At
}
