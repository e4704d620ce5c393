// Package console renders per-node build progress. The executor emits
// structured events; rendering is injected behind the Reporter interface
// so tests can capture the event stream.
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Tags attached to progress events.
const (
	TagRun    = ""
	TagSkip   = "SKIP"
	TagDryRun = "DRY-RUN"
	TagClean  = "CLEAN"
	TagFailed = "FAILED"
)

// Event describes the outcome of one DAG node.
type Event struct {
	Index int
	Total int
	Tag   string
	// Label is the node's display line: the expanded action for rule
	// nodes, or a status message naming the artifact.
	Label string
	// Action is the expanded action description, empty for nodes with no
	// rule.
	Action string
}

// Reporter receives build progress. Implementations must tolerate Event
// calls without a preceding Begin.
type Reporter interface {
	Begin(title string, total int)
	Event(ev Event)
	End()
	// Out returns the writer handed to builder actions for their own
	// output.
	Out() io.Writer
}

var (
	tagColors = map[string]*color.Color{
		TagSkip:   color.New(color.FgMagenta, color.Bold),
		TagDryRun: color.New(color.FgMagenta, color.Bold),
		TagClean:  color.New(color.FgMagenta, color.Bold),
		TagFailed: color.New(color.FgRed, color.Bold),
	}
	headerColor = color.New(color.FgGreen, color.Bold)
)

// Console renders events as counted lines above a progress bar.
type Console struct {
	w       io.Writer
	verbose bool
	bar     *progressbar.ProgressBar
}

// New creates a console writing to w. In verbose mode the expanded action
// line is printed for every executed node.
func New(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

// Begin prints the run header and initializes the progress bar.
func (c *Console) Begin(title string, total int) {
	fmt.Fprintf(c.w, "[+] %s\n", headerColor.Sprint(title))
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("steps"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Event renders one node outcome and advances the bar.
func (c *Console) Event(ev Event) {
	if c.bar != nil {
		c.bar.Clear()
	}
	line := fmt.Sprintf("[%d/%d]", ev.Index, ev.Total)
	if ev.Tag != "" {
		tag := ev.Tag
		if tc, ok := tagColors[ev.Tag]; ok {
			tag = tc.Sprint(ev.Tag)
		}
		line += fmt.Sprintf(" [%s]", tag)
	}
	if ev.Label != "" {
		line += " " + ev.Label
	}
	fmt.Fprintln(c.w, line)
	if c.verbose && ev.Action != "" {
		fmt.Fprintln(c.w, "    "+ev.Action)
	}
	if c.bar != nil {
		c.bar.Add(1)
	}
}

// End finishes the progress bar.
func (c *Console) End() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
}

// Out returns the underlying writer.
func (c *Console) Out() io.Writer { return c.w }

// Recorder collects events for inspection; tests use it in place of a
// Console.
type Recorder struct {
	Events []Event
	Titles []string
	w      io.Writer
}

// NewRecorder creates a recorder whose Out writes to w (io.Discard when
// nil).
func NewRecorder(w io.Writer) *Recorder {
	if w == nil {
		w = io.Discard
	}
	return &Recorder{w: w}
}

func (r *Recorder) Begin(title string, total int) { r.Titles = append(r.Titles, title) }
func (r *Recorder) Event(ev Event)                { r.Events = append(r.Events, ev) }
func (r *Recorder) End()                          {}
func (r *Recorder) Out() io.Writer                { return r.w }
