package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"pmk/internal/board"
	"pmk/internal/paths"
	"pmk/internal/tools"
)

// ErrNoFirmware is returned by Flash when the board has no built image.
var ErrNoFirmware = errors.New("no .uf2 file to flash")

// Builder drives cmake, ninja and picotool for one board at a time.
type Builder struct {
	Locator *tools.Locator
	Runner  Runner
	Stdout  io.Writer
	Stderr  io.Writer
	Log     zerolog.Logger
	// Environ is the base environment; nil means os.Environ.
	Environ func() []string
}

// NewBuilder returns a builder that runs real subprocesses.
func NewBuilder(locator *tools.Locator, stdout, stderr io.Writer, log zerolog.Logger) *Builder {
	return &Builder{
		Locator: locator,
		Runner:  CmdRunner{},
		Stdout:  stdout,
		Stderr:  stderr,
		Log:     log,
	}
}

func (b *Builder) env() []string {
	base := os.Environ
	if b.Environ != nil {
		base = b.Environ
	}
	return tools.Overlay(base(), b.Locator.BinDirs())
}

func (b *Builder) require(name string) (string, error) {
	path, ok := b.Locator.Locate(name)
	if !ok {
		return "", &tools.MissingToolError{Tool: name, Hint: tools.SetupHint}
	}
	return path, nil
}

// Configure generates the Ninja build for brd. The SDK location is passed to
// cmake when one can be found; a missing SDK is only logged since the board's
// CMakeLists may fetch it itself.
func (b *Builder) Configure(ctx context.Context, brd board.Board) error {
	cmake, err := b.require("cmake")
	if err != nil {
		return err
	}
	if _, err := b.require("ninja"); err != nil {
		return err
	}
	if err := os.MkdirAll(brd.BuildDir, 0o755); err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}

	args := []string{"-G", "Ninja", "-S", brd.Dir, "-B", brd.BuildDir}
	if sdk, ok := b.Locator.LocateSDK(); ok {
		args = append(args, "-DPICO_SDK_PATH="+sdk)
	} else {
		b.Log.Warn().Str("board", brd.Name).Msg("Pico SDK not found; run 'pmk setup'")
	}

	b.Log.Info().Str("board", brd.Name).Strs("args", args).Msg("configuring")
	_, err = b.Runner.Run(ctx, cmake, args, RunOptions{
		Dir:    brd.Dir,
		Env:    b.env(),
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	})
	if err != nil {
		return fmt.Errorf("cmake configure %s: %w", brd.Name, err)
	}
	return nil
}

// Build compiles brd, configuring it first when no build.ninja exists yet. It
// returns the firmware image path, which is empty if the build produced none.
func (b *Builder) Build(ctx context.Context, brd board.Board) (string, error) {
	if ok, _ := paths.FileExists(filepath.Join(brd.BuildDir, "build.ninja")); !ok {
		if err := b.Configure(ctx, brd); err != nil {
			return "", err
		}
	}
	ninja, err := b.require("ninja")
	if err != nil {
		return "", err
	}

	b.Log.Info().Str("board", brd.Name).Msg("building")
	_, err = b.Runner.Run(ctx, ninja, []string{"-C", brd.BuildDir}, RunOptions{
		Env:    b.env(),
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	})
	if err != nil {
		return "", fmt.Errorf("build %s: %w", brd.Name, err)
	}

	uf2 := board.FindUF2(brd.BuildDir)
	if uf2 == "" {
		b.Log.Warn().Str("board", brd.Name).Msg("build completed but no .uf2 found")
	}
	return uf2, nil
}

// Flash loads uf2 onto a connected device with picotool and restarts it.
func (b *Builder) Flash(ctx context.Context, uf2 string) error {
	if uf2 == "" {
		return ErrNoFirmware
	}
	picotool, ok := b.Locator.LocateFlasher()
	if !ok {
		return &tools.MissingToolError{
			Tool: "picotool",
			Hint: fmt.Sprintf("Flash manually: drag %s onto the RPI-RP2 drive.", filepath.Base(uf2)),
		}
	}

	b.Log.Info().Str("uf2", uf2).Str("picotool", picotool).Msg("flashing")
	_, err := b.Runner.Run(ctx, picotool, []string{"load", "-fx", uf2}, RunOptions{
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	})
	if err != nil {
		return fmt.Errorf("flash failed, is the device connected? %w", err)
	}
	return nil
}
