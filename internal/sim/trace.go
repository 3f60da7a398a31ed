package sim

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Versifine/strider/internal/input"
	"github.com/go-gl/mathgl/mgl64"
)

// FrameRecord is one line of a trace.
type FrameRecord struct {
	RunID      string      `json:"run_id"`
	Frame      int         `json:"frame"`
	Time       float64     `json:"time"`
	DT         float64     `json:"dt"`
	Input      input.State `json:"input"`
	Move       mgl64.Vec3  `json:"move"`
	Position   mgl64.Vec3  `json:"position"`
	Velocity   mgl64.Vec3  `json:"velocity"`
	Grounded   bool        `json:"grounded"`
	Sliding    bool        `json:"sliding"`
	Jumped     bool        `json:"jumped"`
	SlopeAngle float64     `json:"slope"`
	Hits       []string    `json:"hits,omitempty"`
}

// Trace writes frame records as JSON lines.
type Trace struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	path   string
}

func NewTrace(w io.Writer) *Trace {
	bw := bufio.NewWriter(w)
	t := &Trace{w: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// CreateTrace opens dir/<scene>-<runID>.jsonl, creating dir if needed.
func CreateTrace(dir, sceneName, runID string) (*Trace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sim: create trace dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", sceneName, runID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sim: create trace: %w", err)
	}
	t := NewTrace(f)
	t.path = path
	return t, nil
}

func (t *Trace) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

func (t *Trace) Write(rec FrameRecord) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(rec); err != nil {
		return fmt.Errorf("sim: write trace frame %d: %w", rec.Frame, err)
	}
	return nil
}

func (t *Trace) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
		t.closer = nil
	}
	return err
}

// ReadTrace decodes every record in r.
func ReadTrace(r io.Reader) ([]FrameRecord, error) {
	dec := json.NewDecoder(r)
	var out []FrameRecord
	for {
		var rec FrameRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("sim: read trace: %w", err)
		}
		out = append(out, rec)
	}
}
