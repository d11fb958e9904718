package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrConfig marks every failure to obtain a usable configuration. The CLI
// treats it as fatal before any remote query is made.
var ErrConfig = errors.New("configuration error")

const (
	// AppName names the per-user configuration directory
	AppName = "osutil"
	// FileName is the fixed configuration file name
	FileName = "osutil.conf"

	DefaultOBSAPI         = "https://api.opensuse.org"
	DefaultRepologyAPI    = "https://repology.org/api/v1"
	DefaultConcurrency    = 4
	DefaultTimeout        = 30 * time.Second
	DefaultRequestsPerSec = 1.0
	defaultTimeoutString  = "30s"
	defaultPythonPrefix   = "python-"
	defaultPython3Prefix  = "python3-"
)

// Config represents the application configuration
type Config struct {
	Username string         `toml:"username"`
	Password string         `toml:"password"`
	OBS      OBSConfig      `toml:"obs"`
	Repology RepologyConfig `toml:"repology"`
	Outdated OutdatedConfig `toml:"outdated"`
}

// OBSConfig holds build service settings
type OBSConfig struct {
	APIURL string `toml:"api_url,omitempty"`
}

// RepologyConfig holds upstream tracker settings
type RepologyConfig struct {
	APIURL            string  `toml:"api_url,omitempty"`
	UserAgent         string  `toml:"user_agent,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"` // 0 keeps the default, negative disables limiting
}

// OutdatedConfig tunes the outdated check
type OutdatedConfig struct {
	Concurrency       int      `toml:"concurrency,omitempty"`
	Timeout           string   `toml:"timeout,omitempty"`
	Retries           int      `toml:"retries,omitempty"`
	StripPrefixes     []string `toml:"strip_prefixes,omitempty"`
	DistributionsFile string   `toml:"distributions_file,omitempty"`
}

// Dir returns the per-user configuration directory
// ($XDG_CONFIG_HOME/osutil, falling back to ~/.config/osutil)
func Dir() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrConfig, err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, AppName), nil
}

// DefaultPath returns the configuration file path
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads configuration from the default path
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from a specific file path. Unlike most
// settings files a missing file is an error: credentials have no default.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist (run 'osutil config init')", ErrConfig, path)
		}
		return nil, fmt.Errorf("%w: unable to read %s: %v", ErrConfig, path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML configuration. name is only used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("%w: unable to parse %s: %v", ErrConfig, name, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the fields that have no default
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("%w: username is not set", ErrConfig)
	}
	if strings.ContainsRune(c.Username, '\'') {
		return fmt.Errorf("%w: username %q must not contain a quote", ErrConfig, c.Username)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is not set", ErrConfig)
	}
	if c.Outdated.Concurrency < 0 {
		return fmt.Errorf("%w: outdated.concurrency must be >= 1, got %d", ErrConfig, c.Outdated.Concurrency)
	}
	if c.Outdated.Retries < 0 {
		return fmt.Errorf("%w: outdated.retries must be >= 0, got %d", ErrConfig, c.Outdated.Retries)
	}
	if c.Outdated.Timeout != "" {
		d, err := time.ParseDuration(c.Outdated.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid outdated.timeout %q", ErrConfig, c.Outdated.Timeout)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.OBS.APIURL == "" {
		c.OBS.APIURL = DefaultOBSAPI
	}
	c.OBS.APIURL = strings.TrimRight(c.OBS.APIURL, "/")
	if c.Repology.APIURL == "" {
		c.Repology.APIURL = DefaultRepologyAPI
	}
	c.Repology.APIURL = strings.TrimRight(c.Repology.APIURL, "/")
	if c.Repology.RequestsPerSecond == 0 {
		c.Repology.RequestsPerSecond = DefaultRequestsPerSec
	}
	if c.Outdated.Concurrency == 0 {
		c.Outdated.Concurrency = DefaultConcurrency
	}
	if c.Outdated.Timeout == "" {
		c.Outdated.Timeout = defaultTimeoutString
	}
	if c.Outdated.StripPrefixes == nil {
		c.Outdated.StripPrefixes = []string{defaultPythonPrefix, defaultPython3Prefix}
	}
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Outdated.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// DistributionsPath returns the configured eligibility table path, resolved
// relative to the configuration directory. Empty when unset.
func (c *Config) DistributionsPath() (string, error) {
	p := c.Outdated.DistributionsFile
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// SaveTo writes configuration to a specific file path. The file holds a
// password, so it is created private to the user.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}
