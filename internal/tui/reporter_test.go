package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmk/internal/tools"
)

func TestSetupModelRows(t *testing.T) {
	m := NewSetupModel(tools.DefaultCatalog(t.TempDir()), 120)
	require.Len(t, m.rows, 4)
	assert.Equal(t, "Pico SDK", m.rows[3].Key, "SDK row last")
}

func TestSetupModelFitsWidth(t *testing.T) {
	m := NewSetupModel(tools.DefaultCatalog(t.TempDir()), 60)
	assert.Equal(t, 33, m.columns[2].Width)
	assert.Equal(t, 60, SetupColumns[2].Width, "SetupColumns must not be mutated")

	m = NewSetupModel(tools.DefaultCatalog(t.TempDir()), 10)
	assert.Equal(t, 20, m.columns[2].Width, "DETAIL width floor")
}

func TestSetupReporterDrivesModel(t *testing.T) {
	m := NewSetupModel(tools.DefaultCatalog(t.TempDir()), 120)
	send := func(msg tea.Msg) {
		updated, _ := m.Update(msg)
		m = updated.(ProgressModel)
	}
	r := NewSetupReporter(send)

	r.StepStarted("CMake")
	r.Progress("CMake", 10, 10)
	assert.Equal(t, "extracting", m.rows[1].Fields[1], "full download moves to extracting")
	r.StepFinished(tools.StepResult{Name: "CMake", Outcome: tools.OutcomeInstalled, Detail: "/p/.toolchain/cmake"})
	assert.Equal(t, "installed", m.rows[1].Fields[1])
	assert.Equal(t, "/p/.toolchain/cmake", m.rows[1].Fields[2])

	r.StepStarted("TinyUSB")
	r.StepFinished(tools.StepResult{Name: "TinyUSB", Outcome: tools.OutcomeWarning, Err: errors.New("offline"), Detail: "offline"})
	require.Len(t, m.rows, 5, "dependency row appended")
	assert.Equal(t, "warning", m.rows[4].Fields[1])
}

func TestPlainReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)

	r.StepStarted("Ninja")
	r.Progress("Ninja", 0, 1000)
	r.Progress("Ninja", 10, 1000)
	r.Progress("Ninja", 500, 1000)
	r.Progress("Ninja", 1000, 1000)
	r.Progress("Ninja", 5, -1)
	r.StepFinished(tools.StepResult{Name: "Ninja", Outcome: tools.OutcomeSkippedPresent, Detail: "already installed"})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "==> Ninja\n"), "header: %q", out)
	assert.Equal(t, 3, strings.Count(out, " / "), "progress lines:\n%s", out)
	assert.Contains(t, out, "skipped (present): already installed")
}

func TestDetectModeNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModePlain, DetectMode(&buf, false, false))
	assert.Equal(t, ModeJSON, DetectMode(&buf, false, true))
	assert.Equal(t, 80, Width(&buf, 80))
}
