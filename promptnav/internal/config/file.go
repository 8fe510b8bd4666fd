// Package config handles promptnav configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSelector targets the wrapper ChatGPT renders around user messages.
const DefaultSelector = "div.whitespace-pre-wrap"

// Config is the top-level promptnav configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Prompts PromptsConfig `yaml:"prompts"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	Stealth          string   `yaml:"stealth"` // headless | headful
	XvfbDisplay      string   `yaml:"xvfb_display"` // headful under Xvfb when set, e.g. ":99"
	UserDataDir      string   `yaml:"user_data_dir"`
}

// PageConfig defines the chat page to augment.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// PromptsConfig drives discovery, indexing and presentation.
type PromptsConfig struct {
	Selector          string        `yaml:"selector"`
	Debounce          time.Duration `yaml:"debounce"`
	LabelMaxLength    int           `yaml:"label_max_length"`
	HighlightDuration time.Duration `yaml:"highlight_duration"`
	HighlightColor    string        `yaml:"highlight_color"`
	PruneOnDetach     bool          `yaml:"prune_on_detach"`
	ResetOnNavigate   *bool         `yaml:"reset_on_navigate"`
}

// SinkConfig defines an event output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// HTTPConfig controls the control API. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headful"
	}
	c.Prompts.ApplyDefaults()
}

// ApplyDefaults fills unset prompt settings.
func (p *PromptsConfig) ApplyDefaults() {
	if p.Selector == "" {
		p.Selector = DefaultSelector
	}
	if p.Debounce <= 0 {
		p.Debounce = 300 * time.Millisecond
	}
	if p.LabelMaxLength <= 0 {
		p.LabelMaxLength = 100
	}
	if p.HighlightDuration <= 0 {
		p.HighlightDuration = 2 * time.Second
	}
	if p.HighlightColor == "" {
		p.HighlightColor = "#fff59d"
	}
	if p.ResetOnNavigate == nil {
		on := true
		p.ResetOnNavigate = &on
	}
}

// ResetsOnNavigate reports whether an SPA route change clears the index.
func (p PromptsConfig) ResetsOnNavigate() bool {
	return p.ResetOnNavigate == nil || *p.ResetOnNavigate
}
