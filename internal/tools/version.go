package tools

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionFunc reports the version of the executable at path.
type VersionFunc func(ctx context.Context, path string) (string, error)

// ReadVersion runs `path --version` and extracts the dotted version from the
// first line of its output.
func ReadVersion(ctx context.Context, path string) (string, error) {
	output, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", path, err)
	}
	version := parseVersion(firstLine(strings.TrimSpace(string(output))))
	if version == "" {
		return "", fmt.Errorf("no version in output of %s", path)
	}
	return version, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

var versionRegex = regexp.MustCompile(`[0-9]+\.[0-9]+(?:\.[0-9]+)?`)

// parseVersion returns the first dotted number outside parentheses.
//
//	cmake version 3.31.4                                        -> 3.31.4
//	arm-none-eabi-gcc (Arm GNU Toolchain 14.2.Rel1) 14.2.1 2024 -> 14.2.1
//	picotool v2.1.1 (Linux, GNU-13.2.0, Release)                -> 2.1.1
func parseVersion(line string) string {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch {
		case r == '(':
			depth++
			b.WriteRune(' ')
		case r == ')' && depth > 0:
			depth--
			b.WriteRune(' ')
		case depth == 0:
			b.WriteRune(r)
		}
	}
	if match := versionRegex.FindString(b.String()); match != "" {
		return match
	}
	return versionRegex.FindString(line)
}

// meetsMinimum compares loosely: "3.13" and "3.13.0" are equal. An
// unparseable version never satisfies a minimum.
func meetsMinimum(version, minimum string) (bool, error) {
	if strings.TrimSpace(minimum) == "" {
		return true, nil
	}
	if version == "" {
		return false, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", version, err)
	}
	m, err := semver.NewVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("parse minimum %q: %w", minimum, err)
	}
	return !v.LessThan(m), nil
}
