// Package libforge holds the CLI-facing pieces of forgectl: config,
// cached project state, the platform API client, shell hooks and the
// validator run orchestration.
package libforge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"
)

const (
	configDirName  = ".forgectl"
	configFileName = "config.yaml"

	devDefaultBaseURL     = "http://localhost:8000"
	releaseDefaultBaseURL = "https://api.projectlighthouse.io"
)

// Base URL allow-patterns per environment. dev is restricted to local
// addresses so a misconfigured client can't leak the token, release
// only talks to the platform over https.
var (
	devURLPattern     = regexp.MustCompile(`^https?://(localhost|0\.0\.0\.0)(:\d+)?(/.*)?$`)
	releaseURLPattern = regexp.MustCompile(`^https://([a-zA-Z0-9-]+\.)*projectlighthouse\.io(/.*)?$`)
)

// Config is read from ~/.forgectl/config.yaml with environment
// variables taking precedence.
type Config struct {
	Token       string `yaml:"token" env:"FORGECTL_TOKEN"`
	APIBaseURL  string `yaml:"api_base_url" env:"FORGECTL_API_URL"`
	Environment string `yaml:"environment" env:"FORGECTL_ENV" env-default:"dev"`
}

// LoadConfig reads the config file if it exists and overlays
// environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to read config from environment")
		}
	}
	if cfg.Environment != "release" {
		cfg.Environment = "dev"
	}
	return &cfg, nil
}

// Save writes the config file, creating the directory as needed. The
// file is user-only since it carries the auth token.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	content, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to serialize config")
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

func (c *Config) HasToken() bool {
	return c.Token != ""
}

// BaseURL validates the configured URL against the environment's
// pattern. An invalid URL falls back to the dev default with a
// warning, matching how a bad override should never silently point at
// an arbitrary host.
func (c *Config) BaseURL() string {
	if c.APIBaseURL == "" {
		if c.Environment == "release" {
			return releaseDefaultBaseURL
		}
		return devDefaultBaseURL
	}
	if err := ValidateBaseURL(c.APIBaseURL, c.Environment); err != nil {
		log15.Warn("invalid API base URL, using default", "url", c.APIBaseURL, "err", err)
		return devDefaultBaseURL
	}
	return c.APIBaseURL
}

// ValidateBaseURL checks a base URL against the allow-pattern for the
// given environment ("dev" or "release").
func ValidateBaseURL(baseURL, environment string) error {
	if environment == "release" {
		if !releaseURLPattern.MatchString(baseURL) {
			return fmt.Errorf("invalid URL: must be https://*.projectlighthouse.io in release environment")
		}
		return nil
	}
	if !devURLPattern.MatchString(baseURL) {
		return fmt.Errorf("invalid URL: must be localhost in dev environment")
	}
	return nil
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, configDirName, configFileName), nil
}
