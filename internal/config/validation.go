package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"pmk/internal/tools"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks overrides against catalog and returns structured findings.
func (c Config) Validate(catalog *tools.Catalog) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateToolKeys(catalog)...)
	results = append(results, c.validateSources()...)
	results = append(results, c.validateMinimums()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateToolKeys(catalog *tools.Catalog) []ValidationResult {
	var results []ValidationResult
	for _, folder := range sortedKeys(c.Tools) {
		if _, ok := catalog.Tool(folder); !ok {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("tools.%s does not match any known tool folder", folder),
			})
		}
	}
	return results
}

func (c Config) validateSources() []ValidationResult {
	var results []ValidationResult
	check := func(field string, src SourceConfig) {
		if u := strings.TrimSpace(src.URL); u != "" {
			parsed, err := url.Parse(u)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("%s.url %q is not an http(s) URL", field, u),
				})
			}
		}
		if sum := strings.TrimSpace(src.SHA256); sum != "" {
			if decoded, err := hex.DecodeString(sum); err != nil || len(decoded) != 32 {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("%s.sha256 must be 64 hex characters", field),
				})
			}
		}
	}
	for _, folder := range sortedKeys(c.Tools) {
		check("tools."+folder, c.Tools[folder])
	}
	check("sdk", c.SDK)
	return results
}

func (c Config) validateMinimums() []ValidationResult {
	var results []ValidationResult
	for _, name := range sortedKeys(c.Minimums) {
		value := strings.TrimSpace(c.Minimums[name])
		if value == "" {
			continue
		}
		if _, err := semver.NewVersion(value); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("minimums.%s %q is not a version", name, value),
			})
		}
	}
	return results
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
