package livetable

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "LIVETABLE_CONFIG"

// Config is the on-disk configuration of a live table.
type Config struct {
	// Nodes is the number of testbed nodes, ids 1..Nodes.
	Nodes    int               `yaml:"nodes"`
	Sidecar  SidecarConfig     `yaml:"sidecar"`
	Web      WebConfig         `yaml:"web"`
	Terminal bool              `yaml:"terminal"`
	Badges   map[string]string `yaml:"badges,omitempty"`
}

// SidecarConfig locates the push channel.
type SidecarConfig struct {
	URL              string        `yaml:"url"`
	Categories       []string      `yaml:"categories"`
	ReconnectTimeout time.Duration `yaml:"reconnect_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// WebConfig configures the browser target.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	settings := DefaultSidecarSettings()
	return &Config{
		Nodes: DefaultNodes,
		Sidecar: SidecarConfig{
			URL:              "ws://localhost:10000/",
			Categories:       []string{DefaultCategory},
			ReconnectTimeout: settings.ReconnectTimeout,
			WriteTimeout:     settings.WriteTimeout,
		},
		Web: WebConfig{Addr: ":8080"},
	}
}

// Load loads configuration from the file named by LIVETABLE_CONFIG, or
// returns Default when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, on top of Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the table cannot work with.
func (c *Config) Validate() error {
	if c.Nodes <= 0 {
		return fmt.Errorf("%w: nodes must be positive, got %d", ErrInvalidConfig, c.Nodes)
	}
	if len(c.Sidecar.Categories) == 0 {
		return fmt.Errorf("%w: sidecar.categories is empty", ErrInvalidConfig)
	}
	return nil
}

// SidecarSettings converts the sidecar section to connection settings.
func (c *Config) SidecarSettings() *SidecarSettings {
	settings := DefaultSidecarSettings()
	if c.Sidecar.ReconnectTimeout > 0 {
		settings.ReconnectTimeout = c.Sidecar.ReconnectTimeout
	}
	if c.Sidecar.WriteTimeout > 0 {
		settings.WriteTimeout = c.Sidecar.WriteTimeout
	}
	settings.ReadTimeout = c.Sidecar.ReadTimeout
	return settings
}
