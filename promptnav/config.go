package promptnav

import (
	"github.com/hazyhaar/promptnav/promptnav/internal/config"
)

// Config is the top-level promptnav configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig defines the chat page to augment.
type PageConfig = config.PageConfig

// PromptsConfig drives discovery, indexing and presentation.
type PromptsConfig = config.PromptsConfig

// SinkConfig defines an event output backend.
type SinkConfig = config.SinkConfig

// HTTPConfig controls the control API.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
