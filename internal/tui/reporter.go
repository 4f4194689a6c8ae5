package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"pmk/internal/tools"
)

// SetupColumns is the table layout used by setup.
var SetupColumns = []Column{
	{Header: "COMPONENT", Width: 10},
	{Header: "STATUS", Width: 11},
	{Header: "DETAIL", Width: 60, KeepTail: true},
}

// NewSetupModel returns a progress model with one pending row per catalog
// component. The DETAIL column takes what is left of width.
func NewSetupModel(catalog *tools.Catalog, width int) ProgressModel {
	columns := append([]Column(nil), SetupColumns...)
	detail := width - columns[0].Width - columns[1].Width - 6
	if detail < 20 {
		detail = 20
	}
	if detail < columns[2].Width {
		columns[2].Width = detail
	}
	m := NewProgressModel("pmk setup", columns)
	for _, spec := range catalog.Tools {
		m.AddRow(spec.Name, []string{spec.Name, "pending", spec.Folder})
	}
	m.AddRow(catalog.SDK.Name, []string{catalog.SDK.Name, "pending", catalog.SDK.Folder})
	return m
}

// SetupReporter adapts installer events to bubbletea messages.
type SetupReporter struct {
	send func(tea.Msg)
}

// NewSetupReporter returns a reporter that forwards events through send.
func NewSetupReporter(send func(tea.Msg)) *SetupReporter {
	return &SetupReporter{send: send}
}

// StepStarted implements tools.Reporter.
func (r *SetupReporter) StepStarted(name string) {
	r.send(RowAddMsg{Key: name, Fields: map[string]string{
		"COMPONENT": name,
		"STATUS":    "downloading",
	}})
}

// Progress implements tools.Reporter.
func (r *SetupReporter) Progress(name string, done, total int64) {
	r.send(TransferMsg{Key: name, Done: done, Total: total})
	if total > 0 && done >= total {
		r.send(RowUpdateMsg{Key: name, Fields: map[string]string{"STATUS": "extracting"}})
	}
}

// StepFinished implements tools.Reporter.
func (r *SetupReporter) StepFinished(step tools.StepResult) {
	r.send(RowUpdateMsg{Key: step.Name, Fields: map[string]string{
		"STATUS": string(step.Outcome),
		"DETAIL": NonEmptyOrDash(step.Detail),
	}})
}

var _ tools.Reporter = (*SetupReporter)(nil)

// PlainReporter writes one line per installer event. Byte progress is
// reported at most once per 10% to keep logs readable.
type PlainReporter struct {
	w io.Writer

	mu   sync.Mutex
	last map[string]int64
}

// NewPlainReporter returns a reporter writing to w.
func NewPlainReporter(w io.Writer) *PlainReporter {
	return &PlainReporter{w: w, last: map[string]int64{}}
}

// StepStarted implements tools.Reporter.
func (r *PlainReporter) StepStarted(name string) {
	fmt.Fprintf(r.w, "==> %s\n", name)
}

// Progress implements tools.Reporter.
func (r *PlainReporter) Progress(name string, done, total int64) {
	if total <= 0 {
		return
	}
	decile := done * 10 / total
	r.mu.Lock()
	prev, seen := r.last[name]
	r.last[name] = decile
	r.mu.Unlock()
	if seen && decile == prev {
		return
	}
	fmt.Fprintf(r.w, "    %s / %s\n", humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
}

// StepFinished implements tools.Reporter.
func (r *PlainReporter) StepFinished(step tools.StepResult) {
	if step.Outcome.Skipped() {
		fmt.Fprintf(r.w, "    skipped (%s): %s\n", step.Outcome, step.Detail)
		return
	}
	if step.Detail == "" {
		fmt.Fprintf(r.w, "    %s\n", step.Outcome)
		return
	}
	fmt.Fprintf(r.w, "    %s: %s\n", step.Outcome, step.Detail)
}

var _ tools.Reporter = (*PlainReporter)(nil)
