// Package config provides configuration for the runner service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider modes.
const (
	ModeMock   = "mock"
	ModeOpenAI = "openai"
)

// Starting URL modes.
const (
	URLModeDemo      = "demo"
	URLModePlan      = "plan"
	URLModeAnyPublic = "any_public"
)

// Config holds the runner service configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	CORSOrigins []string

	// Database
	DatabaseURL string

	// Artifacts
	ArtifactsDir string

	// Model provider
	Mode           string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	PlannerModel   string
	EmbeddingModel string

	// Starting URL policy
	StartingURLMode      string
	AllowedStartingHosts []string
	DemoStartingURL      string

	// Browser
	Headless bool

	// Timeouts
	ExecTimeout  time.Duration
	CloseTimeout time.Duration
	NavTimeout   time.Duration

	// Logging
	LogLevel string
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields so an
// absent key falls through to the default instead of zeroing it.
type fileConfig struct {
	HTTPPort             *int     `yaml:"http_port"`
	CORSOrigins          []string `yaml:"cors_origins"`
	DatabaseURL          *string  `yaml:"database_url"`
	ArtifactsDir         *string  `yaml:"artifacts_dir"`
	Mode                 *string  `yaml:"mode"`
	OpenAIAPIKey         *string  `yaml:"openai_api_key"`
	OpenAIBaseURL        *string  `yaml:"openai_base_url"`
	PlannerModel         *string  `yaml:"planner_model"`
	EmbeddingModel       *string  `yaml:"embedding_model"`
	StartingURLMode      *string  `yaml:"starting_url_mode"`
	AllowedStartingHosts []string `yaml:"allowed_starting_hosts"`
	DemoStartingURL      *string  `yaml:"demo_starting_url"`
	Headless             *bool    `yaml:"headless"`
	LogLevel             *string  `yaml:"log_level"`
}

// Load loads configuration with env > file > defaults precedence. The file is
// NOVAFLOW_CONFIG if set, else ./novaflow.yaml; a missing file is fine.
func Load() *Config {
	fc := loadFile(getEnv("NOVAFLOW_CONFIG", "novaflow.yaml"))

	cfg := &Config{
		HTTPPort:             getEnvInt("HTTP_PORT", intOr(fc.HTTPPort, 8080)),
		CORSOrigins:          getEnvList("CORS_ORIGINS", listOr(fc.CORSOrigins, []string{"*"})),
		DatabaseURL:          getEnv("DATABASE_URL", strOr(fc.DatabaseURL, "file:novaflow.db?cache=shared&mode=rwc")),
		ArtifactsDir:         getEnv("ARTIFACTS_DIR", strOr(fc.ArtifactsDir, "artifacts")),
		Mode:                 getEnv("NOVAFLOW_MODE", strOr(fc.Mode, ModeMock)),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", strOr(fc.OpenAIAPIKey, "")),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", strOr(fc.OpenAIBaseURL, "")),
		PlannerModel:         getEnv("PLANNER_MODEL", strOr(fc.PlannerModel, "gpt-4o-mini")),
		EmbeddingModel:       getEnv("EMBEDDING_MODEL", strOr(fc.EmbeddingModel, "text-embedding-3-small")),
		StartingURLMode:      getEnv("STARTING_URL_MODE", strOr(fc.StartingURLMode, URLModeDemo)),
		AllowedStartingHosts: getEnvList("ALLOWED_STARTING_HOSTS", listOr(fc.AllowedStartingHosts, []string{"the-internet.herokuapp.com"})),
		DemoStartingURL:      getEnv("DEMO_STARTING_URL", strOr(fc.DemoStartingURL, "https://the-internet.herokuapp.com/")),
		Headless:             getEnvBool("HEADLESS", boolOr(fc.Headless, true)),
		ExecTimeout:          time.Duration(getEnvInt("EXEC_TIMEOUT_MS", 90000)) * time.Millisecond,
		CloseTimeout:         time.Duration(getEnvInt("CLOSE_TIMEOUT_MS", 30000)) * time.Millisecond,
		NavTimeout:           time.Duration(getEnvInt("NAV_TIMEOUT_MS", 60000)) * time.Millisecond,
		LogLevel:             getEnv("LOG_LEVEL", strOr(fc.LogLevel, "info")),
	}
	return cfg
}

// Validate fails fast on settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeMock, ModeOpenAI:
	default:
		return fmt.Errorf("NOVAFLOW_MODE must be %q or %q, got %q", ModeMock, ModeOpenAI, c.Mode)
	}
	if c.Mode == ModeOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when NOVAFLOW_MODE=%s", ModeOpenAI)
	}

	switch c.StartingURLMode {
	case URLModeDemo, URLModePlan, URLModeAnyPublic:
	default:
		return fmt.Errorf("STARTING_URL_MODE must be one of demo, plan, any_public, got %q", c.StartingURLMode)
	}
	if c.StartingURLMode == URLModePlan && len(c.AllowedStartingHosts) == 0 {
		return fmt.Errorf("ALLOWED_STARTING_HOSTS must not be empty when STARTING_URL_MODE=plan")
	}

	u, err := url.Parse(c.DemoStartingURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DEMO_STARTING_URL must be an absolute http(s) URL, got %q", c.DemoStartingURL)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	return nil
}

func loadFile(path string) *fileConfig {
	fc := &fileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		// Missing file means env/defaults only.
		return fc
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		fmt.Fprintf(os.Stderr, "WARN: ignoring unreadable config file %s: %v\n", path, err)
		return &fileConfig{}
	}
	return fc
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func strOr(v *string, defaultVal string) string {
	if v != nil {
		return *v
	}
	return defaultVal
}

func intOr(v *int, defaultVal int) int {
	if v != nil {
		return *v
	}
	return defaultVal
}

func boolOr(v *bool, defaultVal bool) bool {
	if v != nil {
		return *v
	}
	return defaultVal
}

func listOr(v []string, defaultVal []string) []string {
	if len(v) > 0 {
		return v
	}
	return defaultVal
}
