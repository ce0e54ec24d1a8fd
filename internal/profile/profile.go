package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	LLMProvider string // anthropic, openai, deepseek, siliconflow, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string
	LLMTimeout  int // request timeout in seconds (default: 120)

	// SessionSecret signs session tokens. Required in prod mode.
	SessionSecret string

	Mode    string // dev, prod, demo
	Addr    string
	Port    int
	Data    string
	Driver  string // postgres, sqlite
	DSN     string
	Version string

	// MessageRateLimit caps chat messages per session per hour.
	MessageRateLimit int

	// MaxConcurrentStreams bounds simultaneous LLM streams.
	MaxConcurrentStreams int
}

// Provider default models, used when TUTORCHAT_LLM_MODEL is not set.
var llmModelDefaults = map[string]string{
	"anthropic":   "claude-sonnet-4-5",
	"openai":      "gpt-4o",
	"deepseek":    "deepseek-chat",
	"siliconflow": "Qwen/Qwen2.5-72B-Instruct",
	"openrouter":  "anthropic/claude-sonnet-4.5",
	"ollama":      "llama3.1",
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a completion provider is configured.
// Ollama runs locally and needs no API key.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("TUTORCHAT_LLM_PROVIDER", "anthropic")
	p.LLMAPIKey = getEnvOrDefault("TUTORCHAT_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TUTORCHAT_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TUTORCHAT_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TUTORCHAT_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmModelDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "anthropic"
	}
	if p.LLMModel == "" {
		p.LLMModel = llmModelDefaults[p.LLMProvider]
	}

	p.SessionSecret = getEnvOrDefault("TUTORCHAT_SESSION_SECRET", "")
	p.MessageRateLimit = getEnvOrDefaultInt("TUTORCHAT_MESSAGE_RATE_LIMIT", 200)
	p.MaxConcurrentStreams = getEnvOrDefaultInt("TUTORCHAT_MAX_CONCURRENT_STREAMS", 32)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("tutorchat_%s.db", p.Mode))
		}
	}

	if p.Mode == "prod" && p.SessionSecret == "" {
		return errors.New("session secret is required in prod mode")
	}

	if p.MessageRateLimit <= 0 {
		p.MessageRateLimit = 200
	}
	if p.MaxConcurrentStreams <= 0 {
		p.MaxConcurrentStreams = 32
	}

	return nil
}
