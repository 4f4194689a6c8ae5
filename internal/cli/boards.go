package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pmk/internal/board"
	"pmk/internal/build"
	"pmk/internal/logx"
)

var boardName string

func addBoardFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVar(&boardName, "kb", "", usage)
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [board]",
		Short: "Build firmware for a board",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBuild,
	}
	addBoardFlag(cmd, "Board name (folder in boards/)")
	return cmd
}

func newFlashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flash [board]",
		Short: "Build and flash via picotool",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFlash,
	}
	addBoardFlag(cmd, "Board name")
	return cmd
}

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [board]",
		Short: "Create a new board from the template",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNew,
	}
	addBoardFlag(cmd, "New board name")
	return cmd
}

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [board]",
		Short: "Remove build artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClean,
	}
	addBoardFlag(cmd, "Board name")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available boards",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func newBuilder(cmd *cobra.Command, proj *projectEnv) *build.Builder {
	return build.NewBuilder(proj.Locator, cmd.OutOrStdout(), cmd.ErrOrStderr(), logx.Component(proj.Log, "build"))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// buildBoard builds the named board and returns the firmware image.
func buildBoard(cmd *cobra.Command, proj *projectEnv, name string) (board.Board, string, error) {
	brd, err := proj.Boards().Get(name)
	if err != nil {
		return board.Board{}, "", boardError(err)
	}
	uf2, err := newBuilder(cmd, proj).Build(commandContext(cmd), brd)
	return brd, uf2, err
}

func runBuild(cmd *cobra.Command, args []string) error {
	name, err := boardArg(boardName, args)
	if err != nil {
		return err
	}
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	_, uf2, err := buildBoard(cmd, proj, name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if uf2 == "" {
		fmt.Fprintln(out, "\nBuild completed but no .uf2 found.")
		return nil
	}
	fmt.Fprintf(out, "\nFirmware ready: %s\n", relToRoot(proj.Paths.Root, uf2))
	return nil
}

func runFlash(cmd *cobra.Command, args []string) error {
	name, err := boardArg(boardName, args)
	if err != nil {
		return err
	}
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	_, uf2, err := buildBoard(cmd, proj, name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if uf2 != "" {
		fmt.Fprintf(out, "Flashing %s...\n", filepath.Base(uf2))
	}
	if err := newBuilder(cmd, proj).Flash(commandContext(cmd), uf2); err != nil {
		return err
	}
	fmt.Fprintln(out, "Flashed and running.")
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	name, err := boardArg(boardName, args)
	if err != nil {
		return err
	}
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	brd, err := proj.Boards().Create(name)
	if err != nil {
		return err
	}
	proj.Log.Info().Str("board", brd.Name).Str("template", proj.Config.TemplateBoard).Msg("board created")

	if outputJSON {
		return writeJSON(cmd, brd)
	}

	rel := relToRoot(proj.Paths.Root, brd.Dir)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created board '%s' at %s\n\n", name, rel)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s: pins, features, sensors\n", filepath.Join(rel, "config.h"))
	fmt.Fprintf(out, "  2. Edit %s: MUX channel wiring\n", filepath.Join(rel, "pmk_keymap.h"))
	fmt.Fprintf(out, "  3. Edit %s: default keycodes\n", filepath.Join(rel, "keymap.c"))
	fmt.Fprintf(out, "  4. pmk build -kb %s\n", name)
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	name, err := boardArg(boardName, args)
	if err != nil {
		return err
	}
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	removed, err := proj.Boards().Clean(name)
	if err != nil {
		return boardError(err)
	}
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleaned build for '%s'.\n", name)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to clean for '%s'.\n", name)
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	proj, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer proj.Close()

	boards, err := proj.Boards().List()
	if err != nil {
		return err
	}
	if outputJSON {
		if boards == nil {
			boards = []board.Board{}
		}
		return writeJSON(cmd, boards)
	}

	out := cmd.OutOrStdout()
	if len(boards) == 0 {
		fmt.Fprintln(out, "No boards found. Create one with: pmk new -kb <name>")
		return nil
	}
	fmt.Fprintln(out, "Available boards:")
	for _, b := range boards {
		status := ""
		if b.Built() {
			status = " (built)"
		}
		fmt.Fprintf(out, "  %s%s\n", b.Name, status)
	}
	return nil
}

func relToRoot(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
