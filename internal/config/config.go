// Package config loads the collector configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile types.
const (
	TypeExabeamDataLake = "exabeam-datalake"
	TypeIdentityNow     = "identitynow"
)

// State backends.
const (
	StateBackendFile     = "file"
	StateBackendPostgres = "postgres"
)

// Sink backends.
const (
	SinkBackendStdout = "stdout"
	SinkBackendHTTP   = "http"
	SinkBackendAMQP   = "amqp"
)

type Config struct {
	LogLevel string             `yaml:"log_level"`
	State    StateConfig        `yaml:"state"`
	Sink     SinkConfig         `yaml:"sink"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is one vendor connection.
type Profile struct {
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`

	// Exabeam Data Lake credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// IdentityNow credentials.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	ClusterName       string  `yaml:"cluster_name"`
	Insecure          bool    `yaml:"insecure"`
	ProxyURL          string  `yaml:"proxy_url"`
	MaxEventsPerFetch int     `yaml:"max_events_per_fetch"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type StateConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`   // file backend
	DSN     string `yaml:"dsn"`   // postgres backend
	Table   string `yaml:"table"` // postgres backend, optional
}

type SinkConfig struct {
	Backend string `yaml:"backend"`

	// HTTP backend.
	URL  string `yaml:"url"`
	Gzip bool   `yaml:"gzip"`

	// AMQP backend.
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`

	BatchSize int `yaml:"batch_size"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides takes secrets from the environment when set, so the
// config file can be committed without them. Profile variables are keyed
// by the upper-cased profile name: SIEMFEED_<PROFILE>_PASSWORD and
// SIEMFEED_<PROFILE>_CLIENT_SECRET.
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("SIEMFEED_STATE_DSN"); dsn != "" {
		c.State.DSN = dsn
	}
	for name, profile := range c.Profiles {
		prefix := "SIEMFEED_" + envSegment(name) + "_"
		if v := os.Getenv(prefix + "PASSWORD"); v != "" {
			profile.Password = v
		}
		if v := os.Getenv(prefix + "CLIENT_SECRET"); v != "" {
			profile.ClientSecret = v
		}
		c.Profiles[name] = profile
	}
}

func envSegment(profile string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '/':
			return '_'
		}
		return r
	}, profile)
	return strings.ToUpper(mapped)
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.State.Backend == "" {
		c.State.Backend = StateBackendFile
	}
	if c.State.Backend == StateBackendFile && c.State.Dir == "" {
		c.State.Dir = "./state"
	}
	if c.Sink.Backend == "" {
		c.Sink.Backend = SinkBackendStdout
	}
}

func (c *Config) validate() error {
	switch c.State.Backend {
	case StateBackendFile:
		if c.State.Dir == "" {
			return fmt.Errorf("state.dir is required for the file backend")
		}
	case StateBackendPostgres:
		if c.State.DSN == "" {
			return fmt.Errorf("state.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	switch c.Sink.Backend {
	case SinkBackendStdout:
	case SinkBackendHTTP:
		if c.Sink.URL == "" {
			return fmt.Errorf("sink.url is required for the http backend")
		}
	case SinkBackendAMQP:
		if c.Sink.AMQPURL == "" {
			return fmt.Errorf("sink.amqp_url is required for the amqp backend")
		}
	default:
		return fmt.Errorf("unknown sink backend %q", c.Sink.Backend)
	}

	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	for name, profile := range c.Profiles {
		if err := profile.validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func (p Profile) validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	switch p.Type {
	case TypeExabeamDataLake:
		if p.Username == "" || p.Password == "" {
			return fmt.Errorf("username and password are required")
		}
	case TypeIdentityNow:
		if p.ClientID == "" || p.ClientSecret == "" {
			return fmt.Errorf("client_id and client_secret are required")
		}
	default:
		return fmt.Errorf("unknown profile type %q", p.Type)
	}
	return nil
}
