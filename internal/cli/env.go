package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pmk/internal/platform"
)

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print shell commands that put the toolchain on PATH",
		Long: "Print environment assignments for the managed toolchain, e.g.\n\n" +
			"  eval \"$(pmk env)\"",
		Args: cobra.NoArgs,
		RunE: runEnv,
	}
}

type envResult struct {
	PathDirs []string `json:"path"`
	SDK      string   `json:"pico_sdk_path,omitempty"`
}

func runEnv(cmd *cobra.Command, _ []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	result := envResult{PathDirs: proj.Locator.BinDirs()}
	if sdk, ok := proj.Locator.LocateSDK(); ok {
		result.SDK = sdk
	}
	if result.PathDirs == nil {
		result.PathDirs = []string{}
	}

	if outputJSON {
		return writeJSON(cmd, result)
	}
	for _, line := range envLines(result, proj.Locator.Platform, proj.Catalog.SDK.EnvVar) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func envLines(result envResult, key platform.Key, sdkVar string) []string {
	var lines []string
	if key == platform.Windows {
		if len(result.PathDirs) > 0 {
			lines = append(lines, fmt.Sprintf("$env:Path = %s + $env:Path", psQuote(strings.Join(result.PathDirs, ";")+";")))
		}
		if result.SDK != "" {
			lines = append(lines, fmt.Sprintf("$env:%s = %s", sdkVar, psQuote(result.SDK)))
		}
		return lines
	}
	if len(result.PathDirs) > 0 {
		lines = append(lines, fmt.Sprintf("export PATH=%s%s\"$PATH\"", shellQuote(strings.Join(result.PathDirs, ":")), ":"))
	}
	if result.SDK != "" {
		lines = append(lines, fmt.Sprintf("export %s=%s", sdkVar, shellQuote(result.SDK)))
	}
	return lines
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
