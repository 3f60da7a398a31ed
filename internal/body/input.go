package body

import "github.com/Versifine/strider/internal/input"

// InputState is the single input format shared by scripts, timelines and the
// debug console. It aliases input.State to avoid field divergence.
type InputState = input.State
