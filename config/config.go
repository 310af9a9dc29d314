package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"blog_backend/generator"
)

// DefaultPath is read when present; a missing file at this path is not an error.
const DefaultPath = "config/config.json"

// Config is built once at start-up and passed down explicitly.
type Config struct {
	ServerAddr         string   `mapstructure:"server_addr"`
	SiteURL            string   `mapstructure:"site_url"`
	DatabaseDSN        string   `mapstructure:"database_dsn"`
	SecretKey          string   `mapstructure:"secret_key"`
	LogLevel           string   `mapstructure:"log_level"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	MediaRoot          string   `mapstructure:"media_root"`
	StaticRoot         string   `mapstructure:"static_root"`
	FrontendAppDir     string   `mapstructure:"frontend_app_dir"`

	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
}

// LLMConfig 生成模块的模型配置。
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	APIKey         string  `mapstructure:"api_key"`
	GeminiAPIKey   string  `mapstructure:"gemini_api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	Temperature    float64 `mapstructure:"temperature"`
}

type GenerationConfig struct {
	MinWords    int `mapstructure:"min_words"`
	MaxWords    int `mapstructure:"max_words"`
	TargetWords int `mapstructure:"target_words"`
	MinTags     int `mapstructure:"min_tags"`
}

// PublisherConfig 是 publish 命令登录 API 用的账号。
type PublisherConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

var Providers = []string{"openai", "deepseek", "gemini", "mock"}

// DefaultGeminiModel replaces the OpenAI default model when the provider is gemini.
const DefaultGeminiModel = "gemini-2.5-flash"

var envBindings = map[string][]string{
	"server_addr":             {"HTTP_ADDR"},
	"site_url":                {"SITE_URL"},
	"database_dsn":            {"DATABASE_DSN"},
	"secret_key":              {"SECRET_KEY"},
	"log_level":               {"LOG_LEVEL"},
	"cors_allowed_origins":    {"CORS_ALLOWED_ORIGINS"},
	"media_root":              {"MEDIA_ROOT"},
	"static_root":             {"STATIC_ROOT"},
	"frontend_app_dir":        {"FRONTEND_APP_DIR"},
	"llm.provider":            {"LLM_PROVIDER"},
	"llm.model":               {"OPENAI_MODEL"},
	"llm.api_key":             {"OPENAI_API_KEY"},
	"llm.gemini_api_key":      {"GEMINI_API_KEY"},
	"llm.base_url":            {"OPENAI_BASE_URL"},
	"llm.timeout_seconds":     {"OPENAI_TIMEOUT_SECONDS"},
	"llm.max_attempts":        {"OPENAI_GENERATION_MAX_ATTEMPTS"},
	"llm.temperature":         {"OPENAI_TEMPERATURE"},
	"generation.min_words":    {"GENERATION_MIN_WORDS"},
	"generation.max_words":    {"GENERATION_MAX_WORDS"},
	"generation.target_words": {"GENERATION_TARGET_WORDS"},
	"generation.min_tags":     {"GENERATION_MIN_TAGS"},
	"publisher.base_url":      {"PUBLISHER_BASE_URL"},
	"publisher.username":      {"PUBLISHER_USERNAME"},
	"publisher.password":      {"PUBLISHER_PASSWORD"},
}

func setDefaults(v *viper.Viper) {
	limits := generator.DefaultLimits()
	settings := generator.DefaultSettings()

	v.SetDefault("server_addr", ":8000")
	v.SetDefault("site_url", "https://zuuu.uz")
	v.SetDefault("database_dsn", "blog.db")
	v.SetDefault("secret_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_allowed_origins", []string{"https://api.zuuu.uz", "https://zuuu.uz"})
	v.SetDefault("media_root", "media")
	v.SetDefault("static_root", "staticfiles")
	v.SetDefault("frontend_app_dir", "blog-frontend/app")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", settings.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout_seconds", int(settings.Timeout/time.Second))
	v.SetDefault("llm.max_attempts", settings.MaxAttempts)
	v.SetDefault("llm.temperature", settings.Temperature)

	v.SetDefault("generation.min_words", limits.MinWords)
	v.SetDefault("generation.max_words", limits.MaxWords)
	v.SetDefault("generation.target_words", limits.TargetWords)
	v.SetDefault("generation.min_tags", limits.MinTags)

	v.SetDefault("publisher.base_url", "http://localhost:8000")
	v.SetDefault("publisher.username", "")
	v.SetDefault("publisher.password", "")
}

// Load reads the optional config file at path and overlays the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !(path == DefaultPath && errors.Is(err, fs.ErrNotExist)) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "gemini" && cfg.LLM.Model == generator.DefaultSettings().Model {
		cfg.LLM.Model = DefaultGeminiModel
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that have no safe fallback. The API key is
// left to the generator, which reports it per request.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	known := false
	for _, p := range Providers {
		if c.LLM.Provider == p {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	g := c.Generation
	if g.MinWords < 1 || g.MinWords > g.MaxWords || g.TargetWords < g.MinWords || g.TargetWords > g.MaxWords {
		return fmt.Errorf("invalid word range %d-%d (target %d)", g.MinWords, g.MaxWords, g.TargetWords)
	}
	if g.MinTags < 1 || g.MinTags > generator.MaxTags {
		return fmt.Errorf("generation.min_tags must be between 1 and %d", generator.MaxTags)
	}
	return nil
}

func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// APIKey returns the credential for the selected provider.
func (c Config) APIKey() string {
	switch c.LLM.Provider {
	case "gemini":
		return c.LLM.GeminiAPIKey
	case "mock":
		if c.LLM.APIKey == "" {
			return "mock"
		}
	}
	return c.LLM.APIKey
}

func (c Config) LLMSettings() generator.LLMSettings {
	return generator.LLMSettings{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.APIKey(),
		BaseURL:     c.LLM.BaseURL,
		Timeout:     time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		Temperature: c.LLM.Temperature,
	}
}

func (c Config) GeneratorSettings() generator.Settings {
	return generator.Settings{
		APIKey:      c.APIKey(),
		Model:       c.LLM.Model,
		Timeout:     time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		MaxAttempts: c.LLM.MaxAttempts,
		Temperature: c.LLM.Temperature,
		Limits: generator.Limits{
			MinWords:    c.Generation.MinWords,
			MaxWords:    c.Generation.MaxWords,
			TargetWords: c.Generation.TargetWords,
			MinTags:     c.Generation.MinTags,
		},
	}
}
