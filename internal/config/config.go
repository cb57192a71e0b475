// Package config loads gatekeeper configuration from environment variables,
// optionally overlaid with a YAML policy file for per-deployment tuning.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/plumline/gatekeeper/internal/authz"
)

// Config holds all application configuration.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Engine policy
	ApprovalThreshold         float64 `envconfig:"APPROVAL_THRESHOLD" default:"5000"`
	WorkingHoursStart         string  `envconfig:"WORKING_HOURS_START" default:"09:00"`
	WorkingHoursEnd           string  `envconfig:"WORKING_HOURS_END" default:"17:00"`
	DepartmentScopingEnforced bool    `envconfig:"DEPARTMENT_SCOPING_ENFORCED" default:"true"`
	Departments               string  `envconfig:"DEPARTMENTS" default:"IT,Finance"` // comma-separated

	// Optional YAML policy file overlaying the engine policy above.
	PolicyFile string `envconfig:"POLICY_FILE"`

	// API
	AuthMode       string `envconfig:"AUTH_MODE" default:"api-key"` // "api-key", "jwt", "none"
	APIKey         string `envconfig:"API_KEY"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`

	// Seed the demo inventory on startup.
	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`
}

// policyFile is the YAML overlay schema. All fields are optional; absent
// fields keep the environment-derived value.
type policyFile struct {
	Departments       []string `yaml:"departments"`
	ApprovalThreshold *float64 `yaml:"approval_threshold"`
	WorkingHours      *struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"working_hours"`
	DepartmentScoping *bool `yaml:"department_scoping"`
}

// Load reads configuration from environment variables and, when POLICY_FILE
// is set, overlays the YAML policy file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.PolicyFile != "" {
		if err := cfg.applyPolicyFile(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}

	if _, err := cfg.WorkingHours(); err != nil {
		return nil, err
	}
	if len(cfg.DepartmentList()) == 0 {
		return nil, fmt.Errorf("DEPARTMENTS must name at least one department")
	}

	return &cfg, nil
}

func (c *Config) applyPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	if len(pf.Departments) > 0 {
		c.Departments = strings.Join(pf.Departments, ",")
	}
	if pf.ApprovalThreshold != nil {
		c.ApprovalThreshold = *pf.ApprovalThreshold
	}
	if pf.WorkingHours != nil {
		if pf.WorkingHours.Start != "" {
			c.WorkingHoursStart = pf.WorkingHours.Start
		}
		if pf.WorkingHours.End != "" {
			c.WorkingHoursEnd = pf.WorkingHours.End
		}
	}
	if pf.DepartmentScoping != nil {
		c.DepartmentScopingEnforced = *pf.DepartmentScoping
	}

	return nil
}

// DepartmentList returns the parsed department set.
func (c *Config) DepartmentList() []authz.Department {
	parts := strings.Split(c.Departments, ",")
	depts := make([]authz.Department, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			depts = append(depts, authz.Department(p))
		}
	}
	return depts
}

// WorkingHours parses the HH:MM window bounds.
func (c *Config) WorkingHours() (authz.WorkingHours, error) {
	start, err := time.Parse("15:04", c.WorkingHoursStart)
	if err != nil {
		return authz.WorkingHours{}, fmt.Errorf("invalid WORKING_HOURS_START %q: %w", c.WorkingHoursStart, err)
	}
	end, err := time.Parse("15:04", c.WorkingHoursEnd)
	if err != nil {
		return authz.WorkingHours{}, fmt.Errorf("invalid WORKING_HOURS_END %q: %w", c.WorkingHoursEnd, err)
	}
	return authz.WorkingHours{
		StartHour:   start.Hour(),
		StartMinute: start.Minute(),
		EndHour:     end.Hour(),
		EndMinute:   end.Minute(),
	}, nil
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool {
	return c.Environment == "development"
}
