// Package config loads process configuration from YAML and constructs the
// shared logger.
package config

import (
	"fmt"
	"os"

	"earnlog/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration.
type Config struct {
	Addr        string         `yaml:"addr"`
	LogLevel    string         `yaml:"log_level"`
	DatabaseURL string         `yaml:"database_url"`
	Branches    []BranchConfig `yaml:"branches"`
	Auth        AuthConfig     `yaml:"auth"`
}

// BranchConfig is one branch table entry. Wage is kept as a string in YAML
// so amounts survive parsing exactly.
type BranchConfig struct {
	ID   string `yaml:"id"`
	Wage string `yaml:"wage"`
}

// AuthConfig selects and parameterises the identity provider.
type AuthConfig struct {
	// Mode is "anonymous", "local" or "oidc". Empty means anonymous.
	Mode         string `yaml:"mode"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	IssuerURL    string `yaml:"issuer_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	RawIDToken   string `yaml:"raw_id_token"`
}

// Default returns the built-in configuration: the stock two-branch table
// and an anonymous identity.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Branches: []BranchConfig{
			{ID: "One Bangkok", Wage: "700"},
			{ID: "Paragon", Wage: "800"},
		},
	}
}

// Load reads a YAML config file, overlaying the defaults. An empty path
// yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Branches) == 0 {
		cfg.Branches = Default().Branches
	}
	return cfg, nil
}

// Registry converts the configured branch table into the immutable domain
// registry.
func (c Config) Registry() (*domain.Registry, error) {
	branches := make([]domain.BranchConfig, 0, len(c.Branches))
	for _, b := range c.Branches {
		wage, err := decimal.NewFromString(b.Wage)
		if err != nil {
			return nil, fmt.Errorf("config: branch %q wage %q: %w", b.ID, b.Wage, err)
		}
		if wage.Sign() < 0 {
			return nil, fmt.Errorf("config: branch %q wage must not be negative", b.ID)
		}
		branches = append(branches, domain.BranchConfig{ID: b.ID, Wage: wage})
	}
	return domain.NewRegistry(branches), nil
}
