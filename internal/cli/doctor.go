package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pmk/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check toolchain dependencies",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type doctorResult struct {
	Ready    bool           `json:"ready"`
	Statuses []tools.Status `json:"tools"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	statuses := tools.Doctor(commandContext(cmd), proj.Locator, proj.Config.Minimums, nil)
	result := doctorResult{Ready: ready(statuses), Statuses: statuses}
	for _, st := range statuses {
		proj.Log.Debug().Str("tool", st.Tool).Bool("found", st.Found).Bool("satisfied", st.Satisfied).Str("path", st.Path).Msg("doctor")
	}

	if outputJSON {
		return writeJSON(cmd, result)
	}
	writeDoctorResult(cmd, result)
	return nil
}

// ready reports whether every required dependency is present and recent
// enough.
func ready(statuses []tools.Status) bool {
	for _, st := range statuses {
		if st.Required && !st.Satisfied {
			return false
		}
	}
	return true
}

func doctorTag(st tools.Status) string {
	switch {
	case st.Found && st.Satisfied:
		return "OK"
	case st.Found:
		return "WARN"
	case st.Required:
		return "MISS"
	default:
		return "SKIP"
	}
}

func writeDoctorResult(cmd *cobra.Command, result doctorResult) {
	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)
	faint := lipgloss.NewStyle().Faint(true).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("Checking toolchain:"))
	fmt.Fprintln(out)

	for _, st := range result.Statuses {
		tag := doctorTag(st)
		var rendered string
		switch tag {
		case "OK":
			rendered = green.Render("[OK]  ")
		case "WARN":
			rendered = yellow.Render("[WARN]")
		case "MISS":
			rendered = red.Render("[MISS]")
		default:
			rendered = faint.Render("[SKIP]")
		}

		line := fmt.Sprintf("  %s %s", rendered, st.Tool)
		if st.Found {
			line += " -> " + st.Path
			if st.Version != "" {
				line += " (" + st.Version + ")"
			}
		}
		fmt.Fprintln(out, line)
		if st.Found && st.Error != "" {
			fmt.Fprintf(out, "         %s\n", st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(out, "         %s\n", faint.Render(note))
		}
	}

	fmt.Fprintln(out)
	if result.Ready {
		fmt.Fprintln(out, green.Render("All required tools found. Ready to build!"))
	} else {
		fmt.Fprintln(out, yellow.Render("Missing tools. Run 'pmk setup' to install them automatically."))
	}
}
