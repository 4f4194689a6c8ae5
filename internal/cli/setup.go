package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pmk/internal/config"
	"pmk/internal/logx"
	"pmk/internal/tools"
	"pmk/internal/tui"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download and install the toolchain",
		Long: "Download ARM GCC, CMake, Ninja and the Pico SDK into the project's\n" +
			"toolchain directory. Components that are already present are skipped.",
		Args: cobra.NoArgs,
		RunE: runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	findings := proj.Config.Validate(proj.Catalog)
	for _, f := range findings {
		proj.Log.WithLevel(levelFor(f)).Str("config", proj.Paths.ConfigFile).Msg(f.Message)
	}
	if config.HasErrors(findings) {
		return errors.New("pmk.yaml has errors; fix them before running setup")
	}

	installer := tools.NewInstaller(proj.Locator, logx.Component(proj.Log, "setup"))
	report, err := runInstall(cmd, proj, installer)

	if outputJSON {
		if encErr := writeSetupJSON(cmd, report, err); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range report.Warnings() {
		fmt.Fprintf(out, "warning: %s: %s\n", w.Name, w.Detail)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete! Run 'pmk doctor' to verify.")
	return nil
}

func runInstall(cmd *cobra.Command, proj *projectEnv, installer *tools.Installer) (tools.Report, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch tui.DetectMode(out, noProgress, outputJSON) {
	case tui.ModeTUI:
		// Warnings still reach the log file and the summary printed after the
		// table.
		resume := proj.console.Pause()
		defer resume()
		var report tools.Report
		model := tui.NewSetupModel(installer.Catalog, tui.Width(out, 100))
		err := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) error {
			installer.Reporter = tui.NewSetupReporter(send)
			var err error
			report, err = installer.Install(ctx)
			return err
		})
		return report, err
	case tui.ModePlain:
		installer.Reporter = tui.NewPlainReporter(out)
	}
	return installer.Install(ctx)
}

type setupResult struct {
	Steps     []tools.StepResult `json:"steps"`
	Downloads int                `json:"downloads"`
	Error     string             `json:"error,omitempty"`
}

func writeSetupJSON(cmd *cobra.Command, report tools.Report, installErr error) error {
	result := setupResult{Steps: report.Steps, Downloads: report.Downloads()}
	if installErr != nil {
		result.Error = installErr.Error()
	}
	if result.Steps == nil {
		result.Steps = []tools.StepResult{}
	}
	return writeJSON(cmd, result)
}
