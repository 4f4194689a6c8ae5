package tools

import (
	"pmk/internal/platform"
)

// Source records where a resolved tool was found.
type Source string

const (
	SourceUnknown  Source = ""
	SourceManaged  Source = "managed"
	SourceExternal Source = "external"
	SourceSystem   Source = "system"
	SourceFallback Source = "fallback"
	SourceEnv      Source = "env"
)

// ToolSpec describes a build tool the installer can download.
type ToolSpec struct {
	// Name is the display name, e.g. "ARM GCC".
	Name string
	// Folder is the directory under the managed tree the tool installs into.
	Folder string
	// Executable is the primary program the tool provides.
	Executable string
	// URLs maps a platform to its prebuilt archive. A missing key means no
	// prebuilt resource exists for that platform.
	URLs map[platform.Key]string
	// Checksums optionally pins a lowercase hex SHA-256 per platform.
	Checksums map[platform.Key]string
}

// URL returns the download location for key.
func (s ToolSpec) URL(key platform.Key) (string, bool) {
	u, ok := s.URLs[key]
	return u, ok && u != ""
}

// Checksum returns the pinned SHA-256 for key, or "".
func (s ToolSpec) Checksum(key platform.Key) string {
	return s.Checksums[key]
}

// SDKDependency is a nested component of the SDK that its archive does not
// ship and that must be populated after extraction.
type SDKDependency struct {
	Name       string
	Path       string // relative to the SDK root, slash separated
	Repository string
	Ref        string
}

// SDKSpec describes the hardware SDK.
type SDKSpec struct {
	Name     string
	Version  string
	URL      string
	Checksum string
	Folder   string
	// EnvVar names the environment override for the SDK location.
	EnvVar string
	// ExternalDirs are candidate SDK directories from other installers,
	// newest first.
	ExternalDirs []string
	Dependency   SDKDependency
}

// FlasherSpec describes the optional flashing utility.
type FlasherSpec struct {
	Executable string
	// Fallbacks are explicit file paths checked after every other search.
	Fallbacks []string
}

// ExternalTool describes one tool inside the externally-managed tree:
// <ExternalRoot>/<Dir>/<version>/<BinSubdir>.
type ExternalTool struct {
	Dir       string
	BinSubdir string
}

// Catalog is the static description of everything the toolchain needs. It is
// built once and passed to the installer and locator; callers must treat it
// as read-only.
type Catalog struct {
	Tools          []ToolSpec
	SDK            SDKSpec
	Flasher        FlasherSpec
	ExternalLayout []ExternalTool
}

// Tool returns the spec whose folder matches folder.
func (c *Catalog) Tool(folder string) (ToolSpec, bool) {
	for _, t := range c.Tools {
		if t.Folder == folder {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// Status captures the resolved state of a tool for reporting.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Source    Source   `json:"source,omitempty"`
	Path      string   `json:"path,omitempty"`
	Required  bool     `json:"required"`
	Found     bool     `json:"found"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// ManifestEntry records a completed install in the managed tree.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Folder      string `json:"folder"`
	URL         string `json:"url"`
	Checksum    string `json:"checksum,omitempty"`
	InstalledAt string `json:"installed_at"`
}

// Manifest wraps persisted entries keyed by folder.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
