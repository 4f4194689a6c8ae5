package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	outputJSON bool
	noProgress bool
	logLevel   string
)

// Execute runs the root cobra command.
func Execute() {
	cmd := newRootCmd()
	cmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pmk",
		Short:         "PMK (Pico Magnetic Keyboard) build tool",
		Long:          "Build, flash and manage firmware for Pico-based keyboards.\n\nFirst time? Run 'pmk setup' to install the toolchain.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress display")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides pmk.yaml")

	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newFlashCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newEnvCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// normalizeArgs accepts the single-dash "-kb" spelling, which pflag would
// otherwise read as the shorthand -k with value "b".
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		switch {
		case arg == "--":
			copy(out[i:], args[i:])
			return out
		case arg == "-kb":
			out[i] = "--kb"
		case strings.HasPrefix(arg, "-kb="):
			out[i] = "-" + arg
		default:
			out[i] = arg
		}
	}
	return out
}
