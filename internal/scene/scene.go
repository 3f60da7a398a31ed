package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Versifine/strider/internal/body"
	"github.com/Versifine/strider/internal/config"
	"github.com/Versifine/strider/internal/input"
	"github.com/Versifine/strider/internal/movement"
	"github.com/Versifine/strider/internal/physics"
	"github.com/Versifine/strider/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScene = errors.New("scene: invalid scene")

type Scene struct {
	Name        string         `yaml:"name"`
	Gravity     Vec            `yaml:"gravity"`
	DT          float64        `yaml:"dt"`
	Ticks       int            `yaml:"ticks"`
	PauseFrames []int          `yaml:"pause_frames"`
	Controller  ControllerSpec `yaml:"controller"`
	Capsule     CapsuleSpec    `yaml:"capsule"`
	Surfaces    SurfacesSpec   `yaml:"surfaces"`
	Input       InputSpec      `yaml:"input"`
	Expect      Expect         `yaml:"expect"`

	// Path is the file the scene was loaded from; script paths resolve
	// against its directory.
	Path string `yaml:"-"`
}

// ControllerSpec keeps explicit zeros; nil fields take the config default.
type ControllerSpec struct {
	Speed      *float64 `yaml:"speed"`
	JumpHeight *float64 `yaml:"jump_height"`
}

type CapsuleSpec struct {
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
	SkinWidth  float64 `yaml:"skin_width"`
	SlopeLimit float64 `yaml:"slope_limit"`
	Up         Vec     `yaml:"up"`
	Start      Vec     `yaml:"start"`
}

type SurfacesSpec struct {
	Planes []PlaneSpec `yaml:"planes"`
	Boxes  []BoxSpec   `yaml:"boxes"`
	Blocks [][3]int    `yaml:"blocks"`
	Fills  []FillSpec  `yaml:"fills"`
}

type PlaneSpec struct {
	Name   string `yaml:"name"`
	Point  Vec    `yaml:"point"`
	Normal Vec    `yaml:"normal"`
}

type BoxSpec struct {
	Name string `yaml:"name"`
	Min  Vec    `yaml:"min"`
	Max  Vec    `yaml:"max"`
}

type FillSpec struct {
	Min [3]int `yaml:"min"`
	Max [3]int `yaml:"max"`
}

type InputSpec struct {
	Script   string    `yaml:"script"`
	Timeline []KeySpec `yaml:"timeline"`
}

type KeySpec struct {
	At         float64 `yaml:"at"`
	Horizontal float64 `yaml:"horizontal"`
	Vertical   float64 `yaml:"vertical"`
	Jump       bool    `yaml:"jump"`
}

// Expect is checked against the run summary. Unset fields are not checked.
type Expect struct {
	Grounded *bool    `yaml:"grounded"`
	Sliding  *bool    `yaml:"sliding"`
	MinY     *float64 `yaml:"min_y"`
	MaxY     *float64 `yaml:"max_y"`
	MinJumps *int     `yaml:"min_jumps"`
}

// Vec is a YAML three-component vector. Nil means unset.
type Vec []float64

func (v Vec) Vec3(field string) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: %s needs 3 components, got %d", ErrInvalidScene, field, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// Instance is a built scene ready to run.
type Instance struct {
	Scene  *Scene
	Body   *body.Body
	Source input.Source
	World  *physics.World
	Blocks *world.BlockStore
}

// Load reads a scene file and fills unset values from the built-in defaults.
func Load(path string) (*Scene, error) {
	return LoadWithDefaults(path, config.Default())
}

// LoadWithDefaults reads a scene file and fills unset values from cfg.
func LoadWithDefaults(path string, cfg *config.Config) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: load %s: %w", path, err)
	}
	s, err := Parse(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

func Parse(data []byte, cfg *config.Config) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	s.applyDefaults(cfg)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scene) applyDefaults(cfg *config.Config) {
	if s.Gravity == nil {
		s.Gravity = append(Vec(nil), cfg.Gravity...)
	}
	if s.DT == 0 {
		s.DT = cfg.Simulation.DT
	}
	if s.Ticks == 0 {
		s.Ticks = cfg.Simulation.Ticks
	}
	if s.Controller.Speed == nil {
		s.Controller.Speed = floatOr(cfg.Controller.Speed, movement.DefaultSpeed)
	}
	if s.Controller.JumpHeight == nil {
		s.Controller.JumpHeight = floatOr(cfg.Controller.JumpHeight, movement.DefaultJumpHeight)
	}
	if s.Capsule.Radius == 0 {
		s.Capsule.Radius = cfg.Capsule.Radius
	}
	if s.Capsule.Height == 0 {
		s.Capsule.Height = cfg.Capsule.Height
	}
	if s.Capsule.SkinWidth == 0 {
		s.Capsule.SkinWidth = cfg.Capsule.SkinWidth
	}
	if s.Capsule.SlopeLimit == 0 {
		s.Capsule.SlopeLimit = cfg.Capsule.SlopeLimit
	}
	if s.Capsule.Up == nil {
		s.Capsule.Up = Vec{0, 1, 0}
	}
	if s.Capsule.Start == nil {
		s.Capsule.Start = Vec{0, s.Capsule.Height/2 + s.Capsule.SkinWidth, 0}
	}
}

func floatOr(p *float64, def float64) *float64 {
	if p != nil {
		def = *p
	}
	return &def
}

func (s *Scene) Validate() error {
	if s.Controller.Speed == nil || *s.Controller.Speed < 0 {
		return fmt.Errorf("%w: controller speed must be set and not negative", ErrInvalidScene)
	}
	if s.Controller.JumpHeight == nil || *s.Controller.JumpHeight < 0 {
		return fmt.Errorf("%w: controller jump_height must be set and not negative", ErrInvalidScene)
	}
	if s.DT <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidScene, s.DT)
	}
	if s.Ticks <= 0 {
		return fmt.Errorf("%w: ticks must be positive, got %d", ErrInvalidScene, s.Ticks)
	}
	for _, f := range s.PauseFrames {
		if f < 0 || f >= s.Ticks {
			return fmt.Errorf("%w: pause frame %d outside [0,%d)", ErrInvalidScene, f, s.Ticks)
		}
	}
	if _, err := s.Gravity.Vec3("gravity"); err != nil {
		return err
	}
	if _, err := s.Capsule.Start.Vec3("capsule.start"); err != nil {
		return err
	}
	if _, err := s.Capsule.Up.Vec3("capsule.up"); err != nil {
		return err
	}
	for i, p := range s.Surfaces.Planes {
		if _, err := p.Point.Vec3(fmt.Sprintf("planes[%d].point", i)); err != nil {
			return err
		}
		if _, err := p.Normal.Vec3(fmt.Sprintf("planes[%d].normal", i)); err != nil {
			return err
		}
	}
	for i, b := range s.Surfaces.Boxes {
		lo, err := b.Min.Vec3(fmt.Sprintf("boxes[%d].min", i))
		if err != nil {
			return err
		}
		hi, err := b.Max.Vec3(fmt.Sprintf("boxes[%d].max", i))
		if err != nil {
			return err
		}
		for axis := 0; axis < 3; axis++ {
			if lo[axis] > hi[axis] {
				return fmt.Errorf("%w: boxes[%d] min exceeds max on axis %d", ErrInvalidScene, i, axis)
			}
		}
	}
	if s.Input.Script != "" && len(s.Input.Timeline) > 0 {
		return fmt.Errorf("%w: input has both a script and a timeline", ErrInvalidScene)
	}
	return nil
}

// IsPause reports whether frame runs with dt = 0.
func (s *Scene) IsPause(frame int) bool {
	for _, f := range s.PauseFrames {
		if f == frame {
			return true
		}
	}
	return false
}

// Build creates a fresh world, capsule, body and input source for one run.
func (s *Scene) Build() (*Instance, error) {
	w, blocks, err := s.buildWorld()
	if err != nil {
		return nil, err
	}

	up, _ := s.Capsule.Up.Vec3("capsule.up")
	start, _ := s.Capsule.Start.Vec3("capsule.start")
	capsule, err := physics.NewCapsule(physics.CapsuleConfig{
		Radius:     s.Capsule.Radius,
		Height:     s.Capsule.Height,
		SkinWidth:  s.Capsule.SkinWidth,
		SlopeLimit: s.Capsule.SlopeLimit,
		Up:         up,
	}, start, w)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.Name, err)
	}

	gravity, _ := s.Gravity.Vec3("gravity")
	b, err := body.New(capsule, movement.Config{
		Speed:      *s.Controller.Speed,
		JumpHeight: *s.Controller.JumpHeight,
	}, gravity)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.Name, err)
	}

	src, err := s.buildSource()
	if err != nil {
		return nil, err
	}

	return &Instance{Scene: s, Body: b, Source: src, World: w, Blocks: blocks}, nil
}

func (s *Scene) buildWorld() (*physics.World, *world.BlockStore, error) {
	w := &physics.World{}
	for i, ps := range s.Surfaces.Planes {
		name := ps.Name
		if name == "" {
			name = fmt.Sprintf("plane%d", i)
		}
		point, _ := ps.Point.Vec3("point")
		normal, _ := ps.Normal.Vec3("normal")
		p, err := physics.NewPlane(name, point, normal)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
		}
		w.Planes = append(w.Planes, p)
	}
	for i, bs := range s.Surfaces.Boxes {
		name := bs.Name
		if name == "" {
			name = fmt.Sprintf("box%d", i)
		}
		lo, _ := bs.Min.Vec3("min")
		hi, _ := bs.Max.Vec3("max")
		w.Boxes = append(w.Boxes, physics.Box{Name: name, Bounds: physics.AABB{Min: lo, Max: hi}})
	}

	if len(s.Surfaces.Blocks) == 0 && len(s.Surfaces.Fills) == 0 {
		return w, nil, nil
	}
	blocks := world.NewBlockStore()
	for _, fill := range s.Surfaces.Fills {
		if err := blocks.Fill(fill.Min, fill.Max); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
		}
	}
	for _, b := range s.Surfaces.Blocks {
		blocks.SetSolid(b[0], b[1], b[2], true)
	}
	w.Blocks = blocks
	return w, blocks, nil
}

func (s *Scene) buildSource() (input.Source, error) {
	switch {
	case s.Input.Script != "":
		script, err := input.LoadScript(s.ScriptPath())
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", s.Name, err)
		}
		return script, nil
	case len(s.Input.Timeline) > 0:
		keys := make([]input.Key, 0, len(s.Input.Timeline))
		for _, k := range s.Input.Timeline {
			keys = append(keys, input.Key{At: k.At, Horizontal: k.Horizontal, Vertical: k.Vertical, Jump: k.Jump})
		}
		return input.NewTimeline(keys), nil
	default:
		return input.Idle, nil
	}
}

// ScriptPath resolves the input script against the scene file's directory.
func (s *Scene) ScriptPath() string {
	if s.Input.Script == "" || filepath.IsAbs(s.Input.Script) || s.Path == "" {
		return s.Input.Script
	}
	return filepath.Join(filepath.Dir(s.Path), s.Input.Script)
}
