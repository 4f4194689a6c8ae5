package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"pmk/internal/config"
)

// ProjectPaths captures canonical locations for a firmware project.
type ProjectPaths struct {
	Root         string
	ConfigFile   string
	BoardsDir    string
	ToolchainDir string
	ExternalDir  string
	MetaDir      string
	LogsDir      string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".pmk")
	toolchain := filepath.Join(root, ".toolchain")
	return ProjectPaths{
		Root:         root,
		ConfigFile:   filepath.Join(root, "pmk.yaml"),
		BoardsDir:    filepath.Join(root, "boards"),
		ToolchainDir: toolchain,
		MetaDir:      metaDir,
		LogsDir:      filepath.Join(metaDir, "logs"),
	}
}

// ApplyConfig resolves the configured directories against the project root.
func ApplyConfig(pp ProjectPaths, cfg config.Config) (ProjectPaths, error) {
	pp.BoardsDir = cfg.BoardsPath(pp.Root)
	pp.ToolchainDir = cfg.ToolchainPath(pp.Root)
	external, err := cfg.ExternalPath(pp.Root)
	if err != nil {
		return pp, err
	}
	pp.ExternalDir = external
	return pp, nil
}

// EnsureMetaDirs creates the hidden .pmk metadata directory and its logs
// directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
