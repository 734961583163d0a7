package orchestrator

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	dashKeyStyle   = lipgloss.NewStyle().Bold(true)
	dashChunkStyle = lipgloss.NewStyle().Faint(true)
	spinnerFrames  = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
)

// dashLine is one Command/ExecFence directive's display state.
type dashLine struct {
	command string
	chunk   string
}

// Dashboard is C7's optional TTY progress surface: a ticking goroutine
// that rewrites, in place, one line for every directive that has reported
// output so far. A line stays until Stop, including after its directive
// has finished; finished directives are not removed. It never affects
// resolution order, output, or exit codes — Update is just a sink for
// resolver.Options.Progress.
type Dashboard struct {
	mu      sync.Mutex
	w       io.Writer
	lines   map[string]*dashLine
	order   []string
	frame   int
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewDashboard returns a Dashboard writing to w (ordinarily stderr, so
// it doesn't interleave with the driver's own stdout).
func NewDashboard(w io.Writer) *Dashboard {
	return &Dashboard{w: w, lines: map[string]*dashLine{}}
}

// Update records the latest output chunk for a directive, keyed by the
// string the resolver passes (a command's text, or an exec fence's info
// string). Safe to call from multiple resolver goroutines.
func (d *Dashboard) Update(key, chunk string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ln, ok := d.lines[key]
	if !ok {
		ln = &dashLine{command: key}
		d.lines[key] = ln
		d.order = append(d.order, key)
		sort.Strings(d.order)
	}
	ln.chunk = chunk
}

// Start begins the ~12Hz repaint loop. Stop must be called to restore
// the terminal and release the goroutine.
func (d *Dashboard) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(time.Second / 12)
		defer ticker.Stop()
		prevLines := 0
		for {
			select {
			case <-ticker.C:
				prevLines = d.repaint(prevLines)
			case <-d.stop:
				d.repaint(prevLines)
				return
			}
		}
	}()
}

// Stop halts the repaint loop after drawing one final frame, which stays
// on screen with the cursor left just below it.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	close(d.stop)
	d.mu.Unlock()
	<-d.done
}

func (d *Dashboard) repaint(prevLines int) int {
	d.mu.Lock()
	d.frame++
	frame := spinnerFrames[d.frame%len(spinnerFrames)]
	order := append([]string(nil), d.order...)
	rendered := make([]string, len(order))
	for i, key := range order {
		ln := d.lines[key]
		rendered[i] = dashRenderLine(frame, ln.command, ln.chunk)
	}
	d.mu.Unlock()

	if prevLines > 0 {
		fmt.Fprintf(d.w, "\033[%dA\033[J", prevLines)
	}
	for _, line := range rendered {
		fmt.Fprintln(d.w, line)
	}
	return len(rendered)
}

func dashRenderLine(frame rune, command, chunk string) string {
	preview := oneLine(command)
	if len(preview) > 40 {
		preview = preview[:37] + "..."
	}
	tail := oneLine(chunk)
	if len(tail) > 15 {
		tail = tail[len(tail)-15:]
	}
	return fmt.Sprintf("%c %s %s", frame, dashKeyStyle.Render(preview), dashChunkStyle.Render(tail))
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
