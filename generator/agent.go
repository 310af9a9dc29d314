package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Agent 负责按主题生成文章，校验失败时带修正说明重试。
// Agent 本身无可变状态，可被并发调用。
type Agent struct {
	llm      LLMClient
	settings Settings
	log      *zerolog.Logger
}

func NewAgent(llm LLMClient, settings Settings, logger *zerolog.Logger) *Agent {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	if settings.Limits == (Limits{}) {
		settings.Limits = DefaultLimits()
	}
	return &Agent{llm: llm, settings: settings, log: logger}
}

// Settings 返回 Agent 使用的配置。
func (a *Agent) Settings() Settings {
	return a.settings
}

// Generate runs the attempt loop for one request. Only configuration, auth,
// exhaustion and generic failure errors escape; validation failures are
// folded into the next prompt.
func (a *Agent) Generate(ctx context.Context, req Request) (GeneratedPost, error) {
	req, err := req.Normalize()
	if err != nil {
		return GeneratedPost{}, err
	}
	if a.llm == nil || cleanAPIKey(a.settings.APIKey) == "" {
		return GeneratedPost{}, configurationError()
	}

	limits := a.settings.Limits
	log := a.log.With().Str("topic", req.Topic).Str("tone", string(req.Tone)).Logger()

	var state attemptState
	for state.attempt = 1; state.attempt <= a.settings.MaxAttempts; state.attempt++ {
		payload, err := a.complete(ctx, &log, BuildGenerationPrompt(req, limits, state.correctionNote))
		if err != nil {
			return GeneratedPost{}, err
		}
		post, verdict := a.evaluate(payload)
		if verdict.OK {
			log.Info().Int("attempt", state.attempt).Int("words", verdict.WordCount).Msg("ai generation succeeded")
			return post.clone(), nil
		}

		reason, words := verdict.Reason, verdict.WordCount
		if verdict.Check == CheckWordCount {
			// 字数不达标时先基于本稿扩写一次，不占用重试次数。
			expPayload, err := a.complete(ctx, &log, BuildExpansionPrompt(req, limits, post, words))
			if err != nil {
				return GeneratedPost{}, err
			}
			expanded, expVerdict := a.evaluate(expPayload)
			if expVerdict.OK {
				log.Info().
					Int("attempt", state.attempt).
					Int("words", expVerdict.WordCount).
					Msg("ai generation expansion succeeded")
				return expanded.clone(), nil
			}
			reason = foldExpansion(reason, expVerdict.Reason)
			words = expVerdict.WordCount
		}

		state.fail(reason, words, limits)
		log.Warn().
			Int("attempt", state.attempt).
			Int("max_attempts", a.settings.MaxAttempts).
			Int("words", words).
			Str("reason", reason).
			Msg("ai generation retry")
	}

	log.Error().Str("reason", state.lastReason).Msg("ai generation exhausted")
	return GeneratedPost{}, exhaustedError(a.settings.MaxAttempts, state.lastReason)
}

func (a *Agent) complete(ctx context.Context, log *zerolog.Logger, prompt Prompt) (map[string]any, error) {
	payload, err := a.llm.Complete(ctx, prompt)
	if err == nil {
		return payload, nil
	}
	if errors.Is(err, ErrAuth) {
		log.Error().Err(err).Msg("llm authentication failed")
		return nil, authError(err)
	}
	log.Error().Err(err).Msg("ai generation failed")
	return nil, failedError(err)
}

// evaluate 解析并校验一次返回；格式错误按校验失败处理。
func (a *Agent) evaluate(payload map[string]any) (GeneratedPost, Verdict) {
	post, err := ParseCandidate(payload)
	if err != nil {
		return GeneratedPost{}, Verdict{Check: CheckPayload, Reason: ErrMalformedPayload.Error()}
	}
	return post, Validate(post, a.settings.Limits)
}

func cleanAPIKey(key string) string {
	return strings.Trim(strings.TrimSpace(key), `"'`)
}
