package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pmk/internal/platform"
	"pmk/internal/tools"
)

// Config captures the project settings read from pmk.yaml.
type Config struct {
	Version       int                     `yaml:"version"`
	TemplateBoard string                  `yaml:"template_board"`
	BoardsDir     string                  `yaml:"boards_dir"`
	ToolchainDir  string                  `yaml:"toolchain_dir"`
	ExternalDir   string                  `yaml:"external_dir"`
	LogLevel      string                  `yaml:"log_level"`
	Tools         map[string]SourceConfig `yaml:"tools,omitempty"`
	SDK           SourceConfig            `yaml:"sdk,omitempty"`
	Minimums      map[string]string       `yaml:"minimums,omitempty"`
}

// SourceConfig overrides where a component is downloaded from on the
// current platform.
type SourceConfig struct {
	URL    string `yaml:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:       1,
		TemplateBoard: "example_60",
		BoardsDir:     "boards",
		ToolchainDir:  ".toolchain",
		ExternalDir:   "~/.pico-sdk",
		LogLevel:      "info",
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left blank.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.TemplateBoard) == "" {
		c.TemplateBoard = defaults.TemplateBoard
	}
	if strings.TrimSpace(c.BoardsDir) == "" {
		c.BoardsDir = defaults.BoardsDir
	}
	if strings.TrimSpace(c.ToolchainDir) == "" {
		c.ToolchainDir = defaults.ToolchainDir
	}
	if strings.TrimSpace(c.ExternalDir) == "" {
		c.ExternalDir = defaults.ExternalDir
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// Apply returns a copy of catalog with the configured download overrides
// applied for key. The input catalog is not modified. Unknown tool folders
// are ignored here and reported by Validate.
func (c Config) Apply(catalog *tools.Catalog, key platform.Key) *tools.Catalog {
	out := catalog.Clone()
	for i := range out.Tools {
		override, ok := c.Tools[out.Tools[i].Folder]
		if !ok {
			continue
		}
		if u := strings.TrimSpace(override.URL); u != "" {
			if out.Tools[i].URLs == nil {
				out.Tools[i].URLs = map[platform.Key]string{}
			}
			out.Tools[i].URLs[key] = u
		}
		if sum := strings.TrimSpace(override.SHA256); sum != "" {
			if out.Tools[i].Checksums == nil {
				out.Tools[i].Checksums = map[platform.Key]string{}
			}
			out.Tools[i].Checksums[key] = strings.ToLower(sum)
		}
	}
	if u := strings.TrimSpace(c.SDK.URL); u != "" {
		out.SDK.URL = u
	}
	if sum := strings.TrimSpace(c.SDK.SHA256); sum != "" {
		out.SDK.Checksum = strings.ToLower(sum)
	}
	return out
}
