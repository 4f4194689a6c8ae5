package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

const versionTimeout = 5 * time.Second

// Doctor reports the state of every dependency the firmware build needs.
// The catalog tools and the SDK are required; the flasher is optional.
// readVersion may be nil, in which case ReadVersion is used.
func Doctor(ctx context.Context, l *Locator, overrides map[string]string, readVersion VersionFunc) []Status {
	if readVersion == nil {
		readVersion = ReadVersion
	}
	minimums, notes := ResolveMinimums(overrides)

	var statuses []Status
	for _, spec := range l.Catalog.Tools {
		status := Status{Tool: spec.Executable, Required: true, Minimum: minimums[spec.Executable]}
		path, source, ok := l.LocateWithSource(spec.Executable)
		checkExecutable(ctx, &status, path, source, ok, readVersion)
		status.Notes = append(status.Notes, notes[spec.Executable]...)
		if !ok {
			status.Notes = append(status.Notes, InstallHints(spec.Executable, l.Platform)...)
		}
		statuses = append(statuses, status)
	}

	statuses = append(statuses, checkSDK(l))

	flasher := l.Catalog.Flasher
	status := Status{Tool: flasher.Executable, Minimum: minimums[flasher.Executable]}
	path, source, ok := l.LocateWithSource(flasher.Executable, flasher.Fallbacks...)
	checkExecutable(ctx, &status, path, source, ok, readVersion)
	status.Notes = append(status.Notes, notes[flasher.Executable]...)
	if !ok {
		status.Notes = append(status.Notes, InstallHints(flasher.Executable, l.Platform)...)
	}
	return append(statuses, status)
}

func checkExecutable(ctx context.Context, status *Status, path string, source Source, ok bool, readVersion VersionFunc) {
	if !ok {
		status.Error = "not found"
		return
	}
	status.Found = true
	status.Path = path
	status.Source = source

	vctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	version, err := readVersion(vctx, path)
	if err != nil {
		// A tool that runs but will not say its version is still usable.
		status.Notes = append(status.Notes, fmt.Sprintf("version unknown: %v", err))
		status.Satisfied = status.Minimum == ""
		if !status.Satisfied {
			status.Error = "cannot verify minimum version"
		}
		return
	}
	status.Version = version

	satisfied, err := meetsMinimum(version, status.Minimum)
	if err != nil {
		status.Error = err.Error()
		return
	}
	status.Satisfied = satisfied
	if !satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, status.Minimum)
	}
}

func checkSDK(l *Locator) Status {
	sdk := l.Catalog.SDK
	status := Status{Tool: sdk.Folder, Required: true}
	dir, source, ok := l.LocateSDKWithSource()
	if !ok {
		status.Error = "not found"
		status.Notes = append(status.Notes, SetupHint)
		return status
	}
	status.Found = true
	status.Satisfied = true
	status.Path = dir
	status.Source = source
	if source == SourceManaged {
		status.Version = sdk.Version
	}
	if dep := sdk.Dependency; dep.Path != "" {
		if !dirNonEmpty(filepath.Join(dir, filepath.FromSlash(dep.Path))) {
			status.Notes = append(status.Notes, fmt.Sprintf("%s missing from %s; USB support will not build", dep.Name, dep.Path))
		}
	}
	return status
}
