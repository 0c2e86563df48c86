package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"gopkg.in/yaml.v3"
)

// Config é a configuração do worker de sincronização (cmd/dfe-sync)
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	DFe struct {
		Timeout      time.Duration `yaml:"timeout"`
		Interval     time.Duration `yaml:"interval"`
		MaxPages     int           `yaml:"max_pages"`
		MaxAttempts  int           `yaml:"max_attempts"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
		Concurrency  int           `yaml:"concurrency"`
	} `yaml:"dfe"`

	Partners []Partner `yaml:"partners"`
}

// Partner é uma filial cujos documentos devem ser sincronizados
type Partner struct {
	TenantID    string          `yaml:"tenant_id"`
	BranchID    string          `yaml:"branch_id"`
	TaxID       string          `yaml:"tax_id"`
	State       string          `yaml:"state"`
	Environment dfe.Environment `yaml:"environment"`
}

// Load reads configuration from a YAML file, expanding ${VAR} references
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DFe.Timeout == 0 {
		c.DFe.Timeout = 30 * time.Second
	}
	if c.DFe.Interval == 0 {
		c.DFe.Interval = time.Hour
	}
	if c.DFe.MaxPages == 0 {
		c.DFe.MaxPages = 50
	}
	if c.DFe.MaxAttempts == 0 {
		c.DFe.MaxAttempts = 3
	}
	if c.DFe.RetryBackoff == 0 {
		c.DFe.RetryBackoff = 2 * time.Second
	}
	if c.DFe.Concurrency == 0 {
		c.DFe.Concurrency = 4
	}
	for i := range c.Partners {
		if c.Partners[i].Environment == "" {
			c.Partners[i].Environment = dfe.Homologation
		}
	}
}

func (c *Config) validate() error {
	if c.DFe.Interval < time.Minute {
		return fmt.Errorf("dfe.interval must be at least 1m, got %s", c.DFe.Interval)
	}
	if len(c.Partners) == 0 {
		return fmt.Errorf("at least one partner is required")
	}

	for i, p := range c.Partners {
		env, err := dfe.ParseEnvironment(string(p.Environment))
		if err != nil {
			return fmt.Errorf("partners[%d].environment: %w", i, err)
		}
		c.Partners[i].Environment = env

		if p.TenantID == "" || p.BranchID == "" {
			return fmt.Errorf("partners[%d]: tenant_id and branch_id are required", i)
		}
		if _, err := (dfe.Identity{TaxID: p.TaxID}).Digits(); err != nil {
			return fmt.Errorf("partners[%d].tax_id: %w", i, err)
		}
		if !dfe.IsKnownState(p.State) {
			return fmt.Errorf("partners[%d].state: unknown UF %q", i, p.State)
		}
	}
	return nil
}
