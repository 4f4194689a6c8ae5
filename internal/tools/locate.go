package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"pmk/internal/platform"
)

// Locator finds tools and the SDK on disk. It only reads the filesystem and
// environment; results are never cached, so every call reflects the current
// state of the managed tree.
type Locator struct {
	Platform platform.Key
	// ManagedRoot is the project-local install tree written by setup.
	ManagedRoot string
	// ExternalRoot is a tree maintained by another installer.
	ExternalRoot string
	Catalog      *Catalog

	LookPath func(string) (string, error)
	Getenv   func(string) string
}

// NewLocator returns a locator backed by the process environment.
func NewLocator(catalog *Catalog, managedRoot, externalRoot string) *Locator {
	return &Locator{
		Platform:     platform.Current(),
		ManagedRoot:  managedRoot,
		ExternalRoot: externalRoot,
		Catalog:      catalog,
		LookPath:     exec.LookPath,
		Getenv:       os.Getenv,
	}
}

// BinDirs returns every directory that may hold toolchain executables, in
// search order: the managed tree first, then the external tree.
func (l *Locator) BinDirs() []string {
	dirs := l.managedBinDirs()
	return append(dirs, l.externalBinDirs()...)
}

func (l *Locator) managedBinDirs() []string {
	if l.ManagedRoot == "" || !isDir(l.ManagedRoot) {
		return nil
	}
	var dirs []string
	entries, err := os.ReadDir(l.ManagedRoot)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || entry.Name() == StagingFolder {
				continue
			}
			full := filepath.Join(l.ManagedRoot, entry.Name())
			if bin := filepath.Join(full, "bin"); isDir(bin) {
				dirs = append(dirs, bin)
			}
			// CMake ships as an application bundle on macOS.
			if bundle := filepath.Join(full, "CMake.app", "Contents", "bin"); isDir(bundle) {
				dirs = append(dirs, bundle)
			}
			// Ninja archives hold a single bare executable.
			dirs = append(dirs, full)
		}
	}
	return append(dirs, l.ManagedRoot)
}

func (l *Locator) externalBinDirs() []string {
	if l.ExternalRoot == "" || l.Catalog == nil || !isDir(l.ExternalRoot) {
		return nil
	}
	var dirs []string
	for _, ext := range l.Catalog.ExternalLayout {
		if dir, ok := latestVersionDir(filepath.Join(l.ExternalRoot, ext.Dir), ext.BinSubdir); ok {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// latestVersionDir returns <root>/<version>/<sub> for the lexicographically
// greatest version directory that has sub.
func latestVersionDir(root, sub string) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(root, entry.Name(), sub)
		if isDir(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Locate returns the first executable called name found in the bin
// directories, then on PATH, then among fallbacks. A missing tool is
// reported as ("", false), never as an error.
func (l *Locator) Locate(name string, fallbacks ...string) (string, bool) {
	path, _, ok := l.LocateWithSource(name, fallbacks...)
	return path, ok
}

// LocateWithSource is Locate that also reports which search step matched.
func (l *Locator) LocateWithSource(name string, fallbacks ...string) (string, Source, bool) {
	candidates := []string{name}
	if suffixed := l.Platform.ExecutableName(name); suffixed != name {
		candidates = []string{suffixed, name}
	}

	for _, dir := range l.managedBinDirs() {
		if path, ok := firstFile(dir, candidates); ok {
			return path, SourceManaged, true
		}
	}
	for _, dir := range l.externalBinDirs() {
		if path, ok := firstFile(dir, candidates); ok {
			return path, SourceExternal, true
		}
	}
	if l.LookPath != nil {
		if path, err := l.LookPath(name); err == nil && path != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			return path, SourceSystem, true
		}
	}
	for _, fallback := range fallbacks {
		if isFile(fallback) {
			return fallback, SourceFallback, true
		}
	}
	return "", SourceUnknown, false
}

// LocateFlasher finds the flashing utility including its fallback paths.
func (l *Locator) LocateFlasher() (string, bool) {
	if l.Catalog == nil {
		return "", false
	}
	return l.Locate(l.Catalog.Flasher.Executable, l.Catalog.Flasher.Fallbacks...)
}

// ManagedSDKDir is the SDK folder inside the managed tree.
func (l *Locator) ManagedSDKDir() string {
	return filepath.Join(l.ManagedRoot, l.Catalog.SDK.Folder)
}

// LocateSDK returns the SDK directory: the environment override when it is a
// directory, then the managed copy when populated, then the external versions
// in order.
func (l *Locator) LocateSDK() (string, bool) {
	path, _, ok := l.LocateSDKWithSource()
	return path, ok
}

// LocateSDKWithSource is LocateSDK that also reports which candidate matched.
func (l *Locator) LocateSDKWithSource() (string, Source, bool) {
	if l.Catalog == nil {
		return "", SourceUnknown, false
	}
	sdk := l.Catalog.SDK
	if sdk.EnvVar != "" && l.Getenv != nil {
		if env := l.Getenv(sdk.EnvVar); env != "" && isDir(env) {
			return env, SourceEnv, true
		}
	}
	if l.ManagedRoot != "" {
		// An empty managed folder is not an install; setup fills it.
		if managed := l.ManagedSDKDir(); dirNonEmpty(managed) {
			return managed, SourceManaged, true
		}
	}
	for _, dir := range sdk.ExternalDirs {
		if isDir(dir) {
			return dir, SourceExternal, true
		}
	}
	return "", SourceUnknown, false
}

func firstFile(dir string, names []string) (string, bool) {
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// dirNonEmpty reports whether path is a directory with at least one entry.
func dirNonEmpty(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	return err == nil && len(names) > 0
}
