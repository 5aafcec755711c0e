package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	defaultTimeoutSeconds = 30
	defaultServerAddr     = ":8080"
	defaultOutputDir      = "output"
)

// Config represents the application configuration
type Config struct {
	YouTrack YouTrackConfig          `yaml:"youtrack"`
	Server   ServerConfig            `yaml:"server"`
	Output   OutputConfig            `yaml:"output"`
	Mappings map[string]MappingEntry `yaml:"mappings"`
}

// YouTrackConfig represents YouTrack API configuration
type YouTrackConfig struct {
	BaseURL string `yaml:"base_url"`
	HubURL  string `yaml:"hub_url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout_seconds"`
}

// ServerConfig represents the HTTP adapter configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// OutputConfig represents export configuration
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// MappingEntry is the YAML form of an entity mapping override
type MappingEntry struct {
	Fields       string `yaml:"fields"`
	DetailFields string `yaml:"detail_fields"`
	Type         string `yaml:"type"`
}

// LoadConfig loads configuration from a YAML file and the YT_* environment.
// A missing file is not an error; the environment alone may be enough.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&config)
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv overrides connection settings from YT_BASE_URL, YT_HUB_URL and YT_TOKEN
func applyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix("YT")
	v.AutomaticEnv()

	if s := v.GetString("base_url"); s != "" {
		c.YouTrack.BaseURL = s
	}
	if s := v.GetString("hub_url"); s != "" {
		c.YouTrack.HubURL = s
	}
	if s := v.GetString("token"); s != "" {
		c.YouTrack.Token = s
	}
}

func applyDefaults(c *Config) {
	c.YouTrack.BaseURL = strings.TrimRight(c.YouTrack.BaseURL, "/")
	c.YouTrack.HubURL = strings.TrimRight(c.YouTrack.HubURL, "/")

	if c.YouTrack.Timeout == 0 {
		c.YouTrack.Timeout = defaultTimeoutSeconds
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.YouTrack.BaseURL == "" {
		return fmt.Errorf("YouTrack base URL is required")
	}

	if c.YouTrack.Token == "" {
		return fmt.Errorf("YouTrack token is required")
	}

	if c.YouTrack.Timeout < 0 {
		return fmt.Errorf("invalid timeout_seconds: %d", c.YouTrack.Timeout)
	}

	for name, entry := range c.Mappings {
		if entry.Fields == "" {
			if _, ok := DefaultMappings().Lookup(name); !ok {
				return fmt.Errorf("mapping %q: fields are required", name)
			}
		}
	}

	return nil
}

// APIURL returns the primary REST base, e.g. https://yt.example.com/api
func (c *Config) APIURL() string {
	return c.YouTrack.BaseURL + "/api"
}

// HubAPIURL returns the hub REST base. Without an explicit hub URL the hub
// is assumed to live under the primary host at /hub.
func (c *Config) HubAPIURL() string {
	hub := c.YouTrack.HubURL
	if hub == "" {
		hub = c.YouTrack.BaseURL + "/hub"
	}
	return hub + "/api/rest"
}

// EntityMappings merges configured overrides into the built-in table
func (c *Config) EntityMappings() Mappings {
	mappings := DefaultMappings()

	for name, entry := range c.Mappings {
		m, ok := mappings.Lookup(name)
		if !ok {
			m = EntityMapping{Name: name}
		}
		if entry.Fields != "" {
			m.Fields = entry.Fields
		}
		if entry.DetailFields != "" {
			m.DetailFields = entry.DetailFields
		}
		if entry.Type != "" {
			m.Type = entry.Type
		}
		mappings = mappings.With(m)
	}

	return mappings
}
