package tools

import (
	"fmt"
	"strings"
)

// DefaultMinimums are the oldest tool versions the firmware build is known
// to work with, keyed by executable name.
var DefaultMinimums = map[string]string{
	"cmake":             "3.13",
	"ninja":             "1.10",
	"arm-none-eabi-gcc": "10.3",
}

// ResolveMinimums merges project overrides into DefaultMinimums. An override
// may raise a minimum but never lower it; ignored overrides are explained in
// the returned notes, keyed by tool.
func ResolveMinimums(overrides map[string]string) (map[string]string, map[string][]string) {
	resolved := make(map[string]string, len(DefaultMinimums)+len(overrides))
	for name, value := range DefaultMinimums {
		resolved[name] = value
	}
	notes := map[string][]string{}

	for name, value := range overrides {
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		current := resolved[name]
		ok, err := meetsMinimum(value, current)
		switch {
		case err != nil:
			notes[name] = append(notes[name], fmt.Sprintf("config minimum %q ignored: %v", value, err))
		case !ok:
			notes[name] = append(notes[name], fmt.Sprintf("config minimum %s ignored; default minimum %s is higher", value, current))
		default:
			if value != current {
				notes[name] = append(notes[name], fmt.Sprintf("minimum overridden by project config (%s)", value))
			}
			resolved[name] = value
		}
	}
	return resolved, notes
}
