// Package display implementation for terminal-based output.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"isoforge/pkg/common"
)

var (
	taskStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	keyStyle   = lipgloss.NewStyle().Bold(true)
)

// consoleDisplay handles terminal output. Container output is streamed to
// the same terminal, so nothing is redrawn in place.
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsole creates a Display that writes to standard output, next to the
// streamed container output. Logs go to standard error.
func NewConsole() Display {
	return &consoleDisplay{out: os.Stdout}
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{out: w}
}

// Print writes a message directly to the output writer.
func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, msg)
}

func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	verbose := d.verbose
	d.mu.Unlock()
	if verbose {
		d.Print(dimStyle.Render(msg) + "\n")
	}
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) Close() {}

func (d *consoleDisplay) StartTask(name string) Task {
	d.Print(taskStyle.Render("==> "+name) + "\n")
	return &consoleTask{d: d, name: name, start: time.Now()}
}

// RenderOutput displays structured data from an Output struct to the console.
func (d *consoleDisplay) RenderOutput(out *common.Output) {
	if out == nil {
		return
	}

	if out.Message != "" {
		d.Print(fmt.Sprintln(out.Message))
	}

	if len(out.KV) > 0 {
		width := 0
		for _, kv := range out.KV {
			width = max(width, len(kv.Key)+1)
		}
		for _, kv := range out.KV {
			key := fmt.Sprintf("%-*s", width, kv.Key+":")
			d.Print(fmt.Sprintf("%s %s\n", keyStyle.Render(key), kv.Value))
		}
	}

	if out.Table != nil {
		d.renderTable(out.Table)
	}

	if out.Text != "" {
		d.Print(out.Text)
		if !strings.HasSuffix(out.Text, "\n") {
			d.Print("\n")
		}
	}
}

func (d *consoleDisplay) renderTable(t *common.Table) {
	if len(t.Header) == 0 {
		return
	}

	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		var sb strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
			}
		}
		return strings.TrimRight(sb.String(), " ") + "\n"
	}

	d.Print(keyStyle.Render(strings.TrimRight(line(t.Header), "\n")) + "\n")
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	d.Print(strings.Repeat("-", total-2) + "\n")
	for _, row := range t.Rows {
		d.Print(line(row))
	}
}

type consoleTask struct {
	d     *consoleDisplay
	name  string
	start time.Time
}

func (t *consoleTask) Log(msg string) {
	t.d.Print(fmt.Sprintf("    %s\n", msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	msg := stageStyle.Render(name)
	if target != "" {
		msg += " " + dimStyle.Render(target)
	}
	t.d.Print(fmt.Sprintf("[%s] %s\n", t.name, msg))
}

func (t *consoleTask) Done() {
	elapsed := time.Since(t.start).Round(time.Second)
	t.d.Print(fmt.Sprintf("[%s] %s %s\n", t.name, doneStyle.Render("Done"), dimStyle.Render(elapsed.String())))
}
