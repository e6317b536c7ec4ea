// Package config loads the typed YAML configuration shared by the
// agentsvc, coordinator, and stack binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a reviewmesh deployment.
type Config struct {
	// LLM provider selection and credentials.
	Provider     string  `yaml:"provider"` // openai, ollama, mock
	OpenAIKey    string  `yaml:"openai_key"`
	DefaultModel string  `yaml:"default_model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`

	// ProductCategory is the default category used when a request omits one.
	ProductCategory string `yaml:"product_category"`

	// AgentCardDir holds one static JSON agent-card document per agent,
	// named "<agent_type>.json" (the coordinator's own card is
	// "coordinator.json"), served read-once-at-startup at each service's
	// /.well-known/agent.json.
	AgentCardDir string `yaml:"agent_card_dir"`

	// Departments lists the department analyzers to run, in deployment order.
	// Order is significant: it is the configured agent order the spec's
	// ordering guarantees are defined against.
	Departments []DepartmentConfig `yaml:"departments"`

	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Redis       RedisConfig       `yaml:"redis"`
	Scrape      ScrapeConfig      `yaml:"scrape"`
}

// DepartmentConfig describes one department agent service.
type DepartmentConfig struct {
	AgentType string `yaml:"agent_type"` // quality, experience, user_experience, business, technical
	Port      int    `yaml:"port"`
	Endpoint  string `yaml:"endpoint"` // used by the parallel coordinator; derived from Port if empty
}

// CoordinatorConfig configures the coordinator's workflow defaults and strategy.
type CoordinatorConfig struct {
	Port                  int     `yaml:"port"`
	Strategy              string  `yaml:"strategy"` // sequential, parallel
	MaxDiscussionRounds   int     `yaml:"max_discussion_rounds"`
	DisagreementThreshold float64 `yaml:"disagreement_threshold"`
	// EnableConsensusDebate defaults to true; a pointer distinguishes "unset"
	// from an explicit false, since the zero value of a bare bool would
	// otherwise disable the discussion loop by default.
	EnableConsensusDebate *bool   `yaml:"enable_consensus_debate"`
	AgentTimeoutSeconds   int     `yaml:"agent_timeout_seconds"`
	MasterAgentType       string  `yaml:"master_agent_type"`  // defaults to master_analyst
	AdvisorAgentType      string  `yaml:"advisor_agent_type"` // defaults to business_advisor
	MasterPort            int     `yaml:"master_port"`
	AdvisorPort           int     `yaml:"advisor_port"`
}

// RedisConfig configures the optional distributed rate-limit backend.
// When Addr is empty, agent services fall back to an in-process limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScrapeConfig configures the optional periodic scrape front end.
type ScrapeConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Schedule         string `yaml:"schedule"` // cron expression
	ProductID        string `yaml:"product_id"`
	MaxItemsPerRun   int    `yaml:"max_items_per_run"`
	CoordinatorURL   string `yaml:"coordinator_url"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 150
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.ProductCategory == "" {
		cfg.ProductCategory = "electronics"
	}
	if cfg.AgentCardDir == "" {
		cfg.AgentCardDir = "config/agent_cards"
	}
	if cfg.Coordinator.Strategy == "" {
		cfg.Coordinator.Strategy = "sequential"
	}
	if cfg.Coordinator.MaxDiscussionRounds == 0 {
		cfg.Coordinator.MaxDiscussionRounds = 2
	}
	if cfg.Coordinator.DisagreementThreshold == 0 {
		cfg.Coordinator.DisagreementThreshold = 0.6
	}
	if cfg.Coordinator.AgentTimeoutSeconds == 0 {
		cfg.Coordinator.AgentTimeoutSeconds = 30
	}
	if cfg.Coordinator.MasterAgentType == "" {
		cfg.Coordinator.MasterAgentType = "master_analyst"
	}
	if cfg.Coordinator.AdvisorAgentType == "" {
		cfg.Coordinator.AdvisorAgentType = "business_advisor"
	}
	if cfg.Coordinator.EnableConsensusDebate == nil {
		enabled := true
		cfg.Coordinator.EnableConsensusDebate = &enabled
	}

	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}

	for i := range cfg.Departments {
		d := &cfg.Departments[i]
		if d.Endpoint == "" && d.Port != 0 {
			d.Endpoint = fmt.Sprintf("http://localhost:%d/rpc", d.Port)
		}
	}
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model is required")
	}
	if c.Provider == "openai" && c.OpenAIKey == "" {
		return fmt.Errorf("openai_key (or OPENAI_API_KEY) is required for provider %q", c.Provider)
	}
	if len(c.Departments) == 0 {
		return fmt.Errorf("at least one department must be configured")
	}
	if c.Coordinator.DisagreementThreshold < 0 || c.Coordinator.DisagreementThreshold > 1 {
		return fmt.Errorf("disagreement_threshold must be in [0,1], got %f", c.Coordinator.DisagreementThreshold)
	}
	if c.Coordinator.Strategy != "sequential" && c.Coordinator.Strategy != "parallel" {
		return fmt.Errorf("coordinator.strategy must be sequential or parallel, got %q", c.Coordinator.Strategy)
	}
	return nil
}

// DepartmentAgentTypes returns the configured department agent types in order.
func (c *Config) DepartmentAgentTypes() []string {
	types := make([]string, len(c.Departments))
	for i, d := range c.Departments {
		types[i] = d.AgentType
	}
	return types
}
