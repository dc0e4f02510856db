package led

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const consoleCell = "●"

// Console prints a strip as a row of colored cells, at most once per interval.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	r     *lipgloss.Renderer
	every time.Duration
	last  time.Time
}

func NewConsole(w io.Writer, every time.Duration) *Console {
	return &Console{w: w, r: lipgloss.NewRenderer(w), every: every}
}

func (c *Console) Write(rgb []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if c.every > 0 && now.Sub(c.last) < c.every {
		return nil
	}
	c.last = now
	var b strings.Builder
	for i := 0; i+2 < len(rgb); i += 3 {
		hex := fmt.Sprintf("#%02x%02x%02x", rgb[i], rgb[i+1], rgb[i+2])
		b.WriteString(c.r.NewStyle().Foreground(lipgloss.Color(hex)).Render(consoleCell))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *Console) Close() error { return nil }
