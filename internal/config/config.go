package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvRedisURL  = "DOCROOM_REDIS_URL"
	EnvNamespace = "DOCROOM_NAMESPACE"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	defaultNamespace = "default"
	defaultRedisURL  = "redis://localhost:6379/0"
)

// DocroomConfig represents the top-level docroom.yml configuration
type DocroomConfig struct {
	Version   string           `yaml:"version"`
	Namespace string           `yaml:"namespace,omitempty"` // Scopes rooms and Redis keys on a shared server
	Store     *StoreConfig     `yaml:"store,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Presence  *PresenceConfig  `yaml:"presence,omitempty"`
}

// StoreConfig selects where identity, private documents and the active
// document are persisted
type StoreConfig struct {
	Backend  string `yaml:"backend,omitempty"`   // sqlite (default), redis or memory
	Path     string `yaml:"path,omitempty"`      // sqlite database file
	RedisURL string `yaml:"redis_url,omitempty"` // redis backend only
}

// TransportConfig selects the room transport used for presence
type TransportConfig struct {
	Backend  string `yaml:"backend,omitempty"` // redis (default) or memory
	RedisURL string `yaml:"redis_url,omitempty"`
}

// PresenceConfig tunes the presence channel and facepile
type PresenceConfig struct {
	FacepileSize      int           `yaml:"facepile_size,omitempty"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval,omitempty"`
	StaleAfter        time.Duration `yaml:"stale_after,omitempty"`
}

// DefaultPath returns $HOME/.docroom/docroom.yml
func DefaultPath() string {
	return filepath.Join(homeDir(), ".docroom", "docroom.yml")
}

// Default returns a validated configuration with every default applied
func Default() *DocroomConfig {
	cfg := &DocroomConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate applies defaults and performs strict validation on the configuration
func (c *DocroomConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
	if strings.ContainsAny(c.Namespace, ": \t\n") {
		return fmt.Errorf("invalid namespace %q: must not contain ':' or whitespace", c.Namespace)
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if err := c.Store.validate(); err != nil {
		return err
	}

	if c.Transport == nil {
		c.Transport = &TransportConfig{}
	}
	if err := c.Transport.validate(); err != nil {
		return err
	}

	if c.Presence == nil {
		c.Presence = &PresenceConfig{}
	}
	return c.Presence.validate()
}

func (s *StoreConfig) validate() error {
	if s.Backend == "" {
		s.Backend = BackendSQLite
	}

	switch s.Backend {
	case BackendSQLite:
		if s.Path == "" {
			s.Path = filepath.Join(homeDir(), ".docroom", "state.db")
		}
		s.Path = expandHome(s.Path)
	case BackendRedis:
		if s.RedisURL == "" {
			s.RedisURL = defaultRedisURL
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'sqlite', 'redis' or 'memory')", s.Backend)
	}
	return nil
}

func (t *TransportConfig) validate() error {
	if t.Backend == "" {
		t.Backend = BackendRedis
	}

	switch t.Backend {
	case BackendRedis:
		if t.RedisURL == "" {
			t.RedisURL = defaultRedisURL
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid transport.backend: %s (must be 'redis' or 'memory')", t.Backend)
	}
	return nil
}

func (p *PresenceConfig) validate() error {
	if p.FacepileSize == 0 {
		p.FacepileSize = 5
	}
	if p.HeartbeatInterval == 0 {
		p.HeartbeatInterval = 15 * time.Second
	}
	if p.StaleAfter == 0 {
		p.StaleAfter = 30 * time.Second
	}

	if p.FacepileSize < 1 {
		return fmt.Errorf("presence.facepile_size must be >= 1, got %d", p.FacepileSize)
	}
	if p.HeartbeatInterval < 0 {
		return fmt.Errorf("presence.heartbeat_interval must be positive, got %s", p.HeartbeatInterval)
	}
	// Peers must see at least one heartbeat before an entry expires.
	if p.StaleAfter <= p.HeartbeatInterval {
		return fmt.Errorf("presence.stale_after (%s) must be greater than presence.heartbeat_interval (%s)",
			p.StaleAfter, p.HeartbeatInterval)
	}
	return nil
}

// Load reads and validates docroom.yml from the specified path. A missing
// file yields the defaults. Environment overrides are applied last.
func Load(path string) (*DocroomConfig, error) {
	var config DocroomConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		config.Version = "1.0"
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnv lets DOCROOM_REDIS_URL and DOCROOM_NAMESPACE override the file.
func (c *DocroomConfig) applyEnv() {
	if ns := os.Getenv(EnvNamespace); ns != "" {
		c.Namespace = ns
	}
	if url := os.Getenv(EnvRedisURL); url != "" {
		if c.Transport == nil {
			c.Transport = &TransportConfig{}
		}
		c.Transport.RedisURL = url
		if c.Store != nil && c.Store.Backend == BackendRedis {
			c.Store.RedisURL = url
		}
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
