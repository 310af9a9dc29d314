package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"blog_backend/config"
	"blog_backend/generator"
)

func buildLLM(ctx context.Context, cfg config.Config) (generator.LLMClient, error) {
	settings := cfg.LLMSettings()
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(&settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(&settings)
	case "gemini":
		return generator.NewGeminiLLMFromConfig(ctx, &settings)
	case "mock":
		return &generator.MockLLM{Auto: true, Limits: cfg.GeneratorSettings().Limits}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

// newAgent builds the generation agent. Without an API key no client is
// created and every generation reports the missing key.
func newAgent(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*generator.Agent, error) {
	var llm generator.LLMClient
	if cfg.APIKey() != "" {
		var err error
		llm, err = buildLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn().Str("provider", cfg.LLM.Provider).Msg("llm api key missing; ai generation disabled")
	}
	return generator.NewAgent(llm, cfg.GeneratorSettings(), logger), nil
}
