package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"intake/internal/domain"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	// Default model identifiers, shared with the provider clients so an
	// unset model resolves to the same value everywhere.
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Config represents application configuration loaded from environment
// variables and an optional config file.
type Config struct {
	AppEnv                  string
	LogLevel                string
	Port                    string
	ModelProvider           string
	GeminiAPIKey            string
	GeminiModel             string
	GeminiBaseURL           string
	OpenAIAPIKey            string
	OpenAIModel             string
	OpenAIBaseURL           string
	ModelTimeout            time.Duration
	DevServerURL            string
	DevProbeTimeout         time.Duration
	DevProxyTimeout         time.Duration
	StaticDir               string
	EntryDocument           string
	QuotaSoftLimit          int
	QuotaProviderLimit      int
	ImageAnalysisVariant    string
	SymptomsAnalysisVariant string
	BodyLimitBytes          int64
	CORSAllowedOrigins      []string
	RateLimitPerMin         int
	HTTPReadTimeout         time.Duration
	HTTPWriteTimeout        time.Duration
	HTTPIdleTimeout         time.Duration
}

var defaults = map[string]any{
	"APP_ENV":                    "development",
	"PORT":                       "3000",
	"MODEL_PROVIDER":             ProviderGemini,
	"GEMINI_MODEL":               DefaultGeminiModel,
	"GEMINI_BASE_URL":            "https://generativelanguage.googleapis.com/v1beta",
	"OPENAI_MODEL":               DefaultOpenAIModel,
	"OPENAI_BASE_URL":            "https://api.openai.com/v1",
	"MODEL_TIMEOUT_SECONDS":      60,
	"DEV_SERVER_URL":             "http://localhost:3001",
	"DEV_PROBE_TIMEOUT_MS":       1000,
	"DEV_PROXY_TIMEOUT_SECONDS":  10,
	"STATIC_DIR":                 "./dist-frontend",
	"ENTRY_DOCUMENT":             "index.html",
	"QUOTA_SOFT_LIMIT":           45,
	"QUOTA_PROVIDER_LIMIT":       50,
	"IMAGE_ANALYSIS_VARIANT":     "detailed",
	"SYMPTOMS_ANALYSIS_VARIANT":  "basic",
	"BODY_LIMIT_MB":              50,
	"RATE_LIMIT_PER_MINUTE":      30,
	"HTTP_READ_TIMEOUT_SECONDS":  15,
	"HTTP_WRITE_TIMEOUT_SECONDS": 120,
	"HTTP_IDLE_TIMEOUT_SECONDS":  60,
}

// LoadConfig loads configuration from the environment and applies defaults.
// When path is non-empty the file is read first; environment variables still
// take precedence over values from the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		AppEnv:                  v.GetString("APP_ENV"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		Port:                    v.GetString("PORT"),
		ModelProvider:           strings.ToLower(strings.TrimSpace(v.GetString("MODEL_PROVIDER"))),
		GeminiAPIKey:            strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:             v.GetString("GEMINI_MODEL"),
		GeminiBaseURL:           v.GetString("GEMINI_BASE_URL"),
		OpenAIAPIKey:            strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:             v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL:           v.GetString("OPENAI_BASE_URL"),
		ModelTimeout:            time.Second * time.Duration(v.GetInt("MODEL_TIMEOUT_SECONDS")),
		DevServerURL:            devServerURL(v.GetString("DEV_SERVER_URL")),
		DevProbeTimeout:         time.Millisecond * time.Duration(v.GetInt("DEV_PROBE_TIMEOUT_MS")),
		DevProxyTimeout:         time.Second * time.Duration(v.GetInt("DEV_PROXY_TIMEOUT_SECONDS")),
		StaticDir:               v.GetString("STATIC_DIR"),
		EntryDocument:           v.GetString("ENTRY_DOCUMENT"),
		QuotaSoftLimit:          v.GetInt("QUOTA_SOFT_LIMIT"),
		QuotaProviderLimit:      v.GetInt("QUOTA_PROVIDER_LIMIT"),
		ImageAnalysisVariant:    v.GetString("IMAGE_ANALYSIS_VARIANT"),
		SymptomsAnalysisVariant: v.GetString("SYMPTOMS_ANALYSIS_VARIANT"),
		BodyLimitBytes:          int64(v.GetInt("BODY_LIMIT_MB")) << 20,
		CORSAllowedOrigins:      splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMin:         v.GetInt("RATE_LIMIT_PER_MINUTE"),
		HTTPReadTimeout:         time.Second * time.Duration(v.GetInt("HTTP_READ_TIMEOUT_SECONDS")),
		HTTPWriteTimeout:        time.Second * time.Duration(v.GetInt("HTTP_WRITE_TIMEOUT_SECONDS")),
		HTTPIdleTimeout:         time.Second * time.Duration(v.GetInt("HTTP_IDLE_TIMEOUT_SECONDS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ModelProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("MODEL_PROVIDER %q is not supported", c.ModelProvider)
	}
	if c.QuotaSoftLimit <= 0 || c.QuotaProviderLimit <= 0 {
		return fmt.Errorf("quota limits must be positive")
	}
	if c.QuotaSoftLimit > c.QuotaProviderLimit {
		return fmt.Errorf("QUOTA_SOFT_LIMIT (%d) exceeds QUOTA_PROVIDER_LIMIT (%d)", c.QuotaSoftLimit, c.QuotaProviderLimit)
	}
	if c.DevProbeTimeout <= 0 || c.DevProxyTimeout <= 0 {
		return fmt.Errorf("dev server timeouts must be positive")
	}
	if _, err := domain.ParseImageVariant(c.ImageAnalysisVariant, ""); err != nil {
		return fmt.Errorf("IMAGE_ANALYSIS_VARIANT: %w", err)
	}
	if _, err := domain.ParseSymptomsVariant(c.SymptomsAnalysisVariant, ""); err != nil {
		return fmt.Errorf("SYMPTOMS_ANALYSIS_VARIANT: %w", err)
	}
	if strings.TrimSpace(c.EntryDocument) == "" {
		return fmt.Errorf("ENTRY_DOCUMENT is required")
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("BODY_LIMIT_MB must be positive")
	}
	return nil
}

// ModelAPIKey returns the credential of the configured provider.
func (c *Config) ModelAPIKey() string {
	if c.ModelProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// devServerURL treats "off" as disabled since an empty environment variable
// falls back to the default.
func devServerURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.EqualFold(raw, "off") {
		return ""
	}
	return raw
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
