package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Versifine/strider/internal/body"
	"github.com/Versifine/strider/internal/movement"
	"github.com/Versifine/strider/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/term"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultMovePulse    = 180 * time.Millisecond
)

type ControlledBody interface {
	Tick(dt float64, in body.InputState) movement.Step
	Snapshot() body.Snapshot
	SetLocalPosition(pos mgl64.Vec3)
}

type BlockQuerier interface {
	IsSolid(x, y, z int) bool
}

// Console drives a body interactively from a raw-mode terminal. Movement keys
// hold their axis for a short pulse, so tapping a key repeatedly walks.
type Console struct {
	body         ControlledBody
	blocks       BlockQuerier
	clock        sim.Clock
	out          io.Writer
	now          func() time.Time
	tickInterval time.Duration
	movePulse    time.Duration

	mu            sync.Mutex
	forwardUntil  time.Time
	backwardUntil time.Time
	leftUntil     time.Time
	rightUntil    time.Time
	jumpUntil     time.Time
	lastStep      movement.Step
	commandMode   bool
	commandBuf    []rune
	statusWidth   int
}

// NewConsole returns a console for b. blocks may be nil when the scene has
// no block terrain.
func NewConsole(b ControlledBody, blocks BlockQuerier) *Console {
	return &Console{
		body:         b,
		blocks:       blocks,
		clock:        sim.NewWallClock(),
		out:          os.Stdout,
		now:          time.Now,
		tickInterval: defaultTickInterval,
		movePulse:    defaultMovePulse,
	}
}

// SetTiming overrides the tick interval and key pulse length. Non-positive
// values keep the current setting.
func (c *Console) SetTiming(tick, pulse time.Duration) {
	if tick > 0 {
		c.tickInterval = tick
	}
	if pulse > 0 {
		c.movePulse = pulse
	}
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.body == nil {
		return fmt.Errorf("console body is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	fmt.Fprint(c.out, "[debug] console started (W/A/S/D pulse, Space jump, X clear, : command)\r\n")
	c.renderStatusLine()

	go c.tickLoop(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if b == 3 { // Ctrl+C is not delivered as a signal in raw mode
			return nil
		}
		c.handleKey(reader, b)
	}
}

func (c *Console) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
			c.renderStatusLine()
		}
	}
}

func (c *Console) tick() movement.Step {
	in := c.getInput()
	step := c.body.Tick(c.clock.Next(), in)
	c.mu.Lock()
	c.lastStep = step
	c.mu.Unlock()
	if step.Jumped {
		slog.Debug("debug jump", "move", step.Move)
	}
	return step
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'w', 'W':
		c.pulse(&c.forwardUntil, &c.backwardUntil)
	case 's', 'S':
		c.pulse(&c.backwardUntil, &c.forwardUntil)
	case 'a', 'A':
		c.pulse(&c.leftUntil, &c.rightUntil)
	case 'd', 'D':
		c.pulse(&c.rightUntil, &c.leftUntil)
	case ' ':
		c.pulse(&c.jumpUntil, nil)
	case 'x', 'X':
		c.clearInput()
	case 27: // ESC + arrow sequence
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch arrow {
		case 'A': // up
			c.pulse(&c.forwardUntil, &c.backwardUntil)
		case 'B': // down
			c.pulse(&c.backwardUntil, &c.forwardUntil)
		case 'D': // left
			c.pulse(&c.leftUntil, &c.rightUntil)
		case 'C': // right
			c.pulse(&c.rightUntil, &c.leftUntil)
		}
	}
	c.renderStatusLine()
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
		return
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		fmt.Fprint(c.out, "\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
		return
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s ", buf)
		fmt.Fprintf(c.out, "\r:%s", buf)
		return
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		snap := c.body.Snapshot()
		fmt.Fprintf(c.out, "[debug] pos=(%.3f,%.3f,%.3f) vel=(%.3f,%.3f,%.3f) ground=%t slide=%t slope=%.1f\r\n",
			snap.Position.X(), snap.Position.Y(), snap.Position.Z(),
			snap.Velocity.X(), snap.Velocity.Y(), snap.Velocity.Z(),
			snap.Grounded, snap.Sliding, snap.SlopeAngle,
		)
	case "tp":
		if len(parts) != 4 {
			fmt.Fprint(c.out, "[debug] usage: :tp <x> <y> <z>\r\n")
			return
		}
		x, err1 := strconv.ParseFloat(parts[1], 64)
		y, err2 := strconv.ParseFloat(parts[2], 64)
		z, err3 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Fprint(c.out, "[debug] invalid tp args\r\n")
			return
		}
		c.body.SetLocalPosition(mgl64.Vec3{x, y, z})
		fmt.Fprintf(c.out, "[debug] teleported to (%.3f, %.3f, %.3f)\r\n", x, y, z)
	case "block":
		if len(parts) != 4 {
			fmt.Fprint(c.out, "[debug] usage: :block <x> <y> <z>\r\n")
			return
		}
		x, err1 := strconv.Atoi(parts[1])
		y, err2 := strconv.Atoi(parts[2])
		z, err3 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Fprint(c.out, "[debug] invalid block args\r\n")
			return
		}
		if c.blocks == nil {
			fmt.Fprint(c.out, "[debug] scene has no blocks\r\n")
			return
		}
		fmt.Fprintf(c.out, "[debug] block (%d,%d,%d): solid=%t\r\n", x, y, z, c.blocks.IsSolid(x, y, z))
	default:
		fmt.Fprintf(c.out, "[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[debug] keys:\r\n")
	fmt.Fprint(c.out, "  W/S/A/D or arrows: pulse movement\r\n")
	fmt.Fprint(c.out, "  Space: jump\r\n")
	fmt.Fprint(c.out, "  X: clear all input\r\n")
	fmt.Fprint(c.out, "  : enter command mode\r\n")
	fmt.Fprint(c.out, "[debug] commands:\r\n")
	fmt.Fprint(c.out, "  :tp <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :block <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :state\r\n")
	fmt.Fprint(c.out, "  :help\r\n")
}

func (c *Console) renderStatusLine() {
	c.mu.Lock()
	if c.commandMode {
		c.mu.Unlock()
		return
	}
	in := c.inputLocked(c.now())
	step := c.lastStep
	width := c.statusWidth
	c.mu.Unlock()

	snap := c.body.Snapshot()
	line := fmt.Sprintf(
		"[H:%+.0f V:%+.0f JMP:%s | X:%.2f Y:%.2f Z:%.2f | vel:(%.2f,%.2f,%.2f) ground:%t slide:%t slope:%.1f]",
		in.Horizontal,
		in.Vertical,
		boolLabel(in.Jump),
		snap.Position.X(),
		snap.Position.Y(),
		snap.Position.Z(),
		snap.Velocity.X(),
		snap.Velocity.Y(),
		snap.Velocity.Z(),
		snap.Grounded,
		step.Sliding,
		snap.SlopeAngle,
	)

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)

	c.mu.Lock()
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()
}

func (c *Console) getInput() body.InputState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputLocked(c.now())
}

func (c *Console) inputLocked(now time.Time) body.InputState {
	var in body.InputState
	if active(c.forwardUntil, now) {
		in.Vertical++
	}
	if active(c.backwardUntil, now) {
		in.Vertical--
	}
	if active(c.rightUntil, now) {
		in.Horizontal++
	}
	if active(c.leftUntil, now) {
		in.Horizontal--
	}
	in.Jump = active(c.jumpUntil, now)
	return in
}

func active(until, now time.Time) bool {
	return !until.IsZero() && now.Before(until)
}

// pulse holds on for one move pulse and releases the opposite direction.
func (c *Console) pulse(on, opposite *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*on = c.now().Add(c.movePulse)
	if opposite != nil {
		*opposite = time.Time{}
	}
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func (c *Console) clearInput() {
	c.mu.Lock()
	c.forwardUntil = time.Time{}
	c.backwardUntil = time.Time{}
	c.leftUntil = time.Time{}
	c.rightUntil = time.Time{}
	c.jumpUntil = time.Time{}
	c.mu.Unlock()
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
