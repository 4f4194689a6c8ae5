package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pmk/internal/board"
	"pmk/internal/config"
	"pmk/internal/logx"
	"pmk/internal/paths"
	"pmk/internal/platform"
	"pmk/internal/tools"
)

// projectEnv bundles everything a command needs about the current project.
type projectEnv struct {
	Paths   paths.ProjectPaths
	Config  config.Config
	Catalog *tools.Catalog
	Locator *tools.Locator
	Log     zerolog.Logger

	console *logx.Console
	closer  io.Closer
}

func (p *projectEnv) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *projectEnv) Boards() board.Store {
	return board.Store{BoardsDir: p.Paths.BoardsDir, Template: p.Config.TemplateBoard}
}

// openProject resolves the project root, loads pmk.yaml and opens the log
// file. Callers must Close the result.
func openProject(cmd *cobra.Command) (*projectEnv, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return nil, fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	pp, err = paths.ApplyConfig(pp, cfg)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	console := logx.NewConsole(cmd.ErrOrStderr())
	log, closer, err := logx.New(pp, logx.Options{Level: level, Console: console})
	if err != nil {
		return nil, err
	}

	key := platform.Current()
	catalog := cfg.Apply(tools.DefaultCatalog(pp.ExternalDir), key)
	locator := tools.NewLocator(catalog, pp.ToolchainDir, pp.ExternalDir)
	locator.Platform = key

	log.Debug().
		Str("root", pp.Root).
		Str("toolchain", pp.ToolchainDir).
		Str("external", pp.ExternalDir).
		Str("platform", key.String()).
		Msg("project opened")

	return &projectEnv{
		Paths:   pp,
		Config:  cfg,
		Catalog: catalog,
		Locator: locator,
		Log:     log,
		console: console,
		closer:  closer,
	}, nil
}

// boardArg returns the board named by --kb or the first positional argument.
func boardArg(flag string, args []string) (string, error) {
	name := strings.TrimSpace(flag)
	if name == "" && len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		return "", errors.New("board name required (-kb <board>)")
	}
	return name, nil
}

// boardError adds the user-facing next step to store errors.
func boardError(err error) error {
	if errors.Is(err, board.ErrBoardNotFound) {
		return fmt.Errorf("%w; run 'pmk list' to see available boards", err)
	}
	return err
}
