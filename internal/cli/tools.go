package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pmk/internal/tools"
	"pmk/internal/tui"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the managed toolchain",
	}

	cmd.AddCommand(newToolsListCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog components, where they resolve and when they were installed",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

type toolRow struct {
	Tool        string       `json:"tool"`
	Folder      string       `json:"folder"`
	Source      tools.Source `json:"source,omitempty"`
	Path        string       `json:"path,omitempty"`
	URL         string       `json:"url,omitempty"`
	InstalledAt string       `json:"installed_at,omitempty"`
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	manifest, err := tools.LoadManifest(proj.Paths.ToolchainDir)
	if err != nil {
		// The manifest is informational; a damaged one must not block listing.
		proj.Log.Warn().Err(err).Msg("load manifest")
		manifest = tools.Manifest{Entries: map[string]tools.ManifestEntry{}}
	}

	rows := collectToolRows(proj.Locator, manifest)
	if outputJSON {
		return writeJSON(cmd, rows)
	}
	printToolTable(cmd, rows)
	return nil
}

func collectToolRows(l *tools.Locator, manifest tools.Manifest) []toolRow {
	var rows []toolRow
	for _, spec := range l.Catalog.Tools {
		row := toolRow{Tool: spec.Executable, Folder: spec.Folder}
		if path, source, ok := l.LocateWithSource(spec.Executable); ok {
			row.Path, row.Source = path, source
		}
		if entry, ok := manifest.Entries[spec.Folder]; ok {
			row.URL, row.InstalledAt = entry.URL, entry.InstalledAt
		}
		rows = append(rows, row)
	}

	sdk := l.Catalog.SDK
	row := toolRow{Tool: sdk.Folder, Folder: sdk.Folder}
	if dir, source, ok := l.LocateSDKWithSource(); ok {
		row.Path, row.Source = dir, source
	}
	if entry, ok := manifest.Entries[sdk.Folder]; ok {
		row.URL, row.InstalledAt = entry.URL, entry.InstalledAt
	}
	rows = append(rows, row)

	flasher := l.Catalog.Flasher
	row = toolRow{Tool: flasher.Executable}
	if path, source, ok := l.LocateWithSource(flasher.Executable, flasher.Fallbacks...); ok {
		row.Path, row.Source = path, source
	}
	return append(rows, row)
}

func printToolTable(cmd *cobra.Command, rows []toolRow) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-18s %-9s %-20s %s\n", "Tool", "Source", "Installed", "Path")
	for _, r := range rows {
		path := r.Path
		if path == "" {
			path = "(missing)"
		}
		fmt.Fprintf(out, "%-18s %-9s %-20s %s\n", r.Tool, tui.NonEmptyOrDash(string(r.Source)), tui.NonEmptyOrDash(r.InstalledAt), path)
	}
}
