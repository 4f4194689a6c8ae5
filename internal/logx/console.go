package logx

import (
	"io"
	"sync/atomic"
)

// Console is a console sink that can be silenced while something else, such
// as a full-screen progress display, owns the terminal. The log file is not
// affected.
type Console struct {
	w      io.Writer
	paused atomic.Bool
}

// NewConsole wraps w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Write(p []byte) (int, error) {
	if c.paused.Load() {
		return len(p), nil
	}
	return c.w.Write(p)
}

// Pause drops console output until the returned func is called.
func (c *Console) Pause() (resume func()) {
	c.paused.Store(true)
	return func() { c.paused.Store(false) }
}
