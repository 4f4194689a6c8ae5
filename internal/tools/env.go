package tools

import (
	"os"
	"runtime"
	"strings"
)

// Overlay returns a copy of base with dirs prepended to its PATH entry. The
// input slice and the process environment are left untouched. Windows
// spells the variable "Path", so the key match ignores case there.
func Overlay(base []string, dirs []string) []string {
	return overlay(base, dirs, runtime.GOOS == "windows")
}

func overlay(base []string, dirs []string, foldCase bool) []string {
	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	if len(dirs) == 0 {
		return out
	}
	prefix := strings.Join(dirs, string(os.PathListSeparator))

	for i, kv := range out {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key == "PATH" || (foldCase && strings.EqualFold(key, "PATH")) {
			if value == "" {
				out[i] = key + "=" + prefix
			} else {
				out[i] = key + "=" + prefix + string(os.PathListSeparator) + value
			}
			return out
		}
	}
	return append(out, "PATH="+prefix)
}
