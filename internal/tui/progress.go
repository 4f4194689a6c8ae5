package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const barWidth = 24

// activeStatuses are the row states of a step that is still running.
var activeStatuses = map[string]bool{
	"downloading": true,
	"extracting":  true,
	"cloning":     true,
}

// Column defines a single column in the progress table.
type Column struct {
	Header string
	Width  int
	// KeepTail shortens overlong values from the left, so the end of a path
	// stays visible.
	KeepTail bool
}

// Row holds the field values for a single table row.
type Row struct {
	Key    string
	Fields []string
}

type transfer struct {
	done, total int64
}

// ProgressModel is a bubbletea model that renders one table row per install
// step. The running step gets a byte progress bar after the last column.
type ProgressModel struct {
	columns   []Column
	rows      []Row
	rowIndex  map[string]int
	transfers map[string]transfer
	bar       progress.Model
	spinner   spinner.Model
	title     string
	statusCol int
	// current is the key of the most recently started step.
	current string
	done    bool
	err     error
}

// NewProgressModel creates a progress model with the given title and columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	statusCol := -1
	for i, c := range columns {
		if strings.EqualFold(c.Header, "STATUS") {
			statusCol = i
			break
		}
	}
	return ProgressModel{
		columns:   columns,
		rowIndex:  make(map[string]int),
		transfers: make(map[string]transfer),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		title:     title,
		statusCol: statusCol,
	}
}

// AddRow pre-populates a row. Call this before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.rowIndex[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: padded})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RowUpdateMsg:
		m.applyFields(msg.Key, msg.Fields)
		return m, nil

	case RowAddMsg:
		if _, ok := m.rowIndex[msg.Key]; !ok {
			m.AddRow(msg.Key, nil)
		}
		m.applyFields(msg.Key, msg.Fields)
		return m, nil

	case TransferMsg:
		if _, ok := m.rowIndex[msg.Key]; ok {
			m.transfers[msg.Key] = transfer{done: msg.Done, total: msg.Total}
		}
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) applyFields(key string, fields map[string]string) {
	idx, ok := m.rowIndex[key]
	if !ok {
		return
	}
	row := &m.rows[idx]
	for j, col := range m.columns {
		if val, exists := fields[col.Header]; exists {
			row.Fields[j] = val
		}
	}
	if activeStatuses[m.status(*row)] {
		m.current = key
	}
}

func (m ProgressModel) status(row Row) string {
	if m.statusCol < 0 || m.statusCol >= len(row.Fields) {
		return ""
	}
	return strings.TrimSpace(row.Fields[m.statusCol])
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	widths := make([]int, len(m.columns))
	for i, col := range m.columns {
		widths[i] = max(len(col.Header), col.Width)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	headers := make([]string, len(m.columns))
	for i, col := range m.columns {
		headers[i] = HeaderStyle.Render(pad(col.Header, widths[i]))
	}
	b.WriteString(strings.Join(headers, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		parts := make([]string, len(m.columns))
		for i, col := range m.columns {
			val := ""
			if i < len(row.Fields) {
				val = row.Fields[i]
			}
			if col.KeepTail {
				val = TruncateLeft(val, widths[i])
			} else {
				val = TruncateWithEllipsis(val, widths[i])
			}
			if i == m.statusCol {
				parts[i] = StatusStyle(val).Render(pad(val, widths[i]))
			} else {
				parts[i] = pad(val, widths[i])
			}
		}
		b.WriteString(strings.Join(parts, "  "))
		if tr, ok := m.transfers[row.Key]; ok && activeStatuses[m.status(row)] {
			b.WriteString("  ")
			b.WriteString(m.renderTransfer(tr))
		}
		b.WriteByte('\n')
	}

	if !m.done {
		b.WriteByte('\n')
		b.WriteString(m.footer())
		b.WriteByte('\n')
	}
	return b.String()
}

// footer names the running step and how many steps have finished.
func (m ProgressModel) footer() string {
	finished, total := m.progressCounts()
	idx, ok := m.rowIndex[m.current]
	if !ok || !activeStatuses[m.status(m.rows[idx])] {
		return fmt.Sprintf("%s Installing %d/%d...", m.spinner.View(), finished, total)
	}
	row := m.rows[idx]
	return fmt.Sprintf("%s %s: %s (%d/%d done)", m.spinner.View(), row.Key, m.status(row), finished, total)
}

func (m ProgressModel) renderTransfer(tr transfer) string {
	if tr.total <= 0 {
		return humanize.Bytes(uint64(max(tr.done, 0)))
	}
	pct := float64(tr.done) / float64(tr.total)
	return fmt.Sprintf("%s %s / %s", m.bar.ViewAs(min(pct, 1)),
		humanize.Bytes(uint64(tr.done)), humanize.Bytes(uint64(tr.total)))
}

// progressCounts returns (finished, total). A row is finished once its status
// is neither pending nor active.
func (m ProgressModel) progressCounts() (int, int) {
	finished := 0
	if m.statusCol < 0 {
		return 0, len(m.rows)
	}
	for _, row := range m.rows {
		status := m.status(row)
		if status != "" && status != "pending" && !activeStatuses[status] {
			finished++
		}
	}
	return finished, len(m.rows)
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

// TruncateLeft keeps the last max bytes of value, marking the cut with "...".
func TruncateLeft(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[len(value)-max:]
	}
	return "..." + value[len(value)-max+3:]
}
