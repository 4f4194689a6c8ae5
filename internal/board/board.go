package board

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const buildDirName = "build"

var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrBoardExists     = errors.New("board already exists")
	ErrTemplateMissing = errors.New("template board not found")
	ErrInvalidName     = errors.New("invalid board name")
)

// Board is one firmware target under the boards directory.
type Board struct {
	Name     string `json:"name"`
	Dir      string `json:"dir"`
	BuildDir string `json:"build_dir"`
	// UF2 is the built firmware image, empty until the board is built.
	UF2 string `json:"uf2,omitempty"`
}

// Built reports whether a firmware image exists.
func (b Board) Built() bool { return b.UF2 != "" }

// Store manages board directories.
type Store struct {
	BoardsDir string
	// Template is the board copied by Create.
	Template string
}

// List returns the non-hidden board directories sorted by name. A missing
// boards directory yields no boards.
func (s Store) List() ([]Board, error) {
	entries, err := os.ReadDir(s.BoardsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read boards dir: %w", err)
	}

	var boards []Board
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		boards = append(boards, s.board(entry.Name()))
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].Name < boards[j].Name })
	return boards, nil
}

// Get returns the named board.
func (s Store) Get(name string) (Board, error) {
	if err := validateName(name); err != nil {
		return Board{}, err
	}
	b := s.board(name)
	info, err := os.Stat(b.Dir)
	if err != nil || !info.IsDir() {
		return Board{}, fmt.Errorf("%w: %s", ErrBoardNotFound, name)
	}
	return b, nil
}

func (s Store) board(name string) Board {
	dir := filepath.Join(s.BoardsDir, name)
	b := Board{Name: name, Dir: dir, BuildDir: filepath.Join(dir, buildDirName)}
	b.UF2 = FindUF2(b.BuildDir)
	return b
}

// FindUF2 returns the first .uf2 image in buildDir, or "".
func FindUF2(buildDir string) string {
	matches, err := filepath.Glob(filepath.Join(buildDir, "*.uf2"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

// Create copies the template board to a new board called name, leaving out
// the template's build output, and renames the template's target in
// CMakeLists.txt.
func (s Store) Create(name string) (Board, error) {
	if err := validateName(name); err != nil {
		return Board{}, err
	}
	dest := filepath.Join(s.BoardsDir, name)
	if _, err := os.Lstat(dest); err == nil {
		return Board{}, fmt.Errorf("%w: %s", ErrBoardExists, name)
	}
	template := filepath.Join(s.BoardsDir, s.Template)
	if info, err := os.Stat(template); err != nil || !info.IsDir() {
		return Board{}, fmt.Errorf("%w: %s", ErrTemplateMissing, s.Template)
	}

	if err := copyTree(template, dest); err != nil {
		_ = os.RemoveAll(dest)
		return Board{}, fmt.Errorf("copy template: %w", err)
	}

	cmakeLists := filepath.Join(dest, "CMakeLists.txt")
	if data, err := os.ReadFile(cmakeLists); err == nil {
		updated := strings.ReplaceAll(string(data), s.Template, name)
		if err := os.WriteFile(cmakeLists, []byte(updated), 0o644); err != nil {
			return Board{}, fmt.Errorf("update CMakeLists.txt: %w", err)
		}
	}
	return s.board(name), nil
}

// Clean removes the board's build directory. It reports whether there was
// anything to remove.
func (s Store) Clean(name string) (bool, error) {
	b, err := s.Get(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(b.BuildDir)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	if err := os.RemoveAll(b.BuildDir); err != nil {
		return false, fmt.Errorf("remove build dir: %w", err)
	}
	return true, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// copyTree copies src to dst, skipping any directory named build.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if d.Name() == buildDirName && rel != "." {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		}
		if d.Type()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
