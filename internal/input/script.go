package input

import (
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Script drives input from a tengo program. The program sees the global
// `frame` and a persistent `memory` map, and sets `horizontal`, `vertical`
// and `jump`. Outputs are reset before every run.
type Script struct {
	name     string
	compiled *tengo.Compiled
	memory   *tengo.Map
}

func LoadScript(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input: read script %s: %w", path, err)
	}
	return NewScript(path, src)
}

func NewScript(name string, src []byte) (*Script, error) {
	if strings.TrimSpace(string(src)) == "" {
		return nil, fmt.Errorf("input: script %s is empty", name)
	}

	script := tengo.NewScript(src)
	for _, g := range []struct {
		name  string
		value any
	}{
		{"frame", map[string]any{}},
		{"memory", map[string]any{}},
		{"horizontal", 0.0},
		{"vertical", 0.0},
		{"jump", false},
	} {
		if err := script.Add(g.name, g.value); err != nil {
			return nil, fmt.Errorf("input: script %s: declare %s: %w", name, g.name, err)
		}
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("input: compile script %s: %w", name, err)
	}
	return &Script{
		name:     name,
		compiled: compiled,
		memory:   &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

// Poll runs the script once for f. A runtime panic inside the VM, such as an
// integer division by zero, is returned as an error.
func (s *Script) Poll(f Frame) (st State, err error) {
	if s == nil || s.compiled == nil {
		return State{}, ErrNoSource
	}
	defer func() {
		if p := recover(); p != nil {
			st = State{}
			err = fmt.Errorf("input: run script %s at frame %d: panic: %v", s.name, f.Index, p)
		}
	}()

	if err := s.compiled.Set("frame", frameObject(f)); err != nil {
		return State{}, fmt.Errorf("input: script %s: %w", s.name, err)
	}
	if err := s.compiled.Set("memory", s.memory); err != nil {
		return State{}, fmt.Errorf("input: script %s: %w", s.name, err)
	}
	for name, zero := range map[string]any{"horizontal": 0.0, "vertical": 0.0, "jump": false} {
		if err := s.compiled.Set(name, zero); err != nil {
			return State{}, fmt.Errorf("input: script %s: %w", s.name, err)
		}
	}

	if err := s.compiled.Run(); err != nil {
		return State{}, fmt.Errorf("input: run script %s at frame %d: %w", s.name, f.Index, err)
	}

	st = State{
		Horizontal: s.compiled.Get("horizontal").Float(),
		Vertical:   s.compiled.Get("vertical").Float(),
		Jump:       s.compiled.Get("jump").Bool(),
	}
	return st.Clamped(), nil
}

func (s *Script) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func frameObject(f Frame) *tengo.ImmutableMap {
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"index":    &tengo.Int{Value: int64(f.Index)},
		"time":     &tengo.Float{Value: f.Time},
		"dt":       &tengo.Float{Value: f.Delta},
		"x":        &tengo.Float{Value: f.Position.X()},
		"y":        &tengo.Float{Value: f.Position.Y()},
		"z":        &tengo.Float{Value: f.Position.Z()},
		"vx":       &tengo.Float{Value: f.Velocity.X()},
		"vy":       &tengo.Float{Value: f.Velocity.Y()},
		"vz":       &tengo.Float{Value: f.Velocity.Z()},
		"grounded": boolObject(f.Grounded),
	}}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}
