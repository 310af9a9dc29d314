package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
// Complete 发出一次请求，返回解析后的 JSON 对象。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (map[string]any, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
}

// decodeObject 把模型返回的文本解析成 JSON 对象，容忍 ``` 包裹。
func decodeObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty response body", ErrTransport)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrTransport)
	}
	return out, nil
}
