package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockReply 是 MockLLM 的一次预设返回。
type MockReply struct {
	Payload map[string]any
	Err     error
}

// MockLLM 不调用外部模型。按顺序返回 Replies；用完后若 Auto 为 true，
// 根据提示里的主题生成一篇符合 Limits 的示例文章，便于本地调试。
// Limits 为零值时使用 DefaultLimits。
type MockLLM struct {
	Replies []MockReply
	Auto    bool
	Limits  Limits

	mu      sync.Mutex
	prompts []Prompt
}

var errNoReply = errors.New("mock llm: no scripted reply left")

func (m *MockLLM) Complete(_ context.Context, prompt Prompt) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	if idx < len(m.Replies) {
		r := m.Replies[idx]
		return r.Payload, r.Err
	}
	if !m.Auto {
		return nil, errNoReply
	}
	limits := m.Limits
	if limits.TargetWords <= 0 {
		limits = DefaultLimits()
	}
	return mockArticle(topicFromPrompt(prompt.User), limits.TargetWords, max(promptMinTags(limits), 4)), nil
}

// Calls 返回已发出的请求数。
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts 返回收到的提示副本。
func (m *MockLLM) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt 返回最后一次收到的提示。
func (m *MockLLM) LastPrompt() Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

func topicFromPrompt(user string) string {
	for _, line := range strings.Split(user, "\n") {
		if v, ok := strings.CutPrefix(line, "Topic: "); ok {
			return strings.TrimSpace(v)
		}
	}
	return "IELTS preparation"
}

var fillerWords = []string{
	"practice", "writing", "band", "score", "vocabulary",
	"coherence", "task", "examiner", "essay", "reading",
	"listening", "speaking", "grammar", "fluency", "accuracy",
}

// articleHeadings 标题共 6 个词。
var articleHeadings = []struct {
	tag  string
	text string
}{
	{"h2", "Introduction"},
	{"h3", "Key Strategies"},
	{"h3", "Common Mistakes"},
	{"h2", "Conclusion"},
}

const articleHeadingWords = 6

var mockTags = []string{
	"IELTS", "Exam Preparation", "Study Tips", "Band Score",
	"Vocabulary", "Writing Skills", "Speaking Practice", "Reading Strategies", "Listening Practice",
}

// MockArticle builds a payload whose content has exactly words words (at least
// the heading words), an H2 introduction, two H3 sections and a conclusion.
func MockArticle(topic string, words int) map[string]any {
	return mockArticle(topic, words, 4)
}

func mockArticle(topic string, words, tagCount int) map[string]any {
	body := words - articleHeadingWords
	if body < 0 {
		body = 0
	}
	per := body / len(articleHeadings)
	extra := body % len(articleHeadings)

	var sb strings.Builder
	n := 0
	for i, h := range articleHeadings {
		fmt.Fprintf(&sb, "<%s>%s</%s>", h.tag, h.text, h.tag)
		count := per
		if i < extra {
			count++
		}
		if count == 0 {
			continue
		}
		sb.WriteString("<p>")
		for j := 0; j < count; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fillerWords[n%len(fillerWords)])
			n++
		}
		sb.WriteString("</p>")
	}

	title := truncate(topic, MaxTitleLen)
	return map[string]any{
		"title":           title,
		"content":         sb.String(),
		"seo_title":       title,
		"seo_description": truncate("A practical guide to "+topic+" for IELTS candidates.", MaxSEODescriptionLen),
		"seo_keywords":    "IELTS, " + topic + ", exam preparation",
		"tags":            articleTags(topic, tagCount),
	}
}

// articleTags returns n distinct tags: the first fixed tag, the topic, then
// the rest of mockTags.
func articleTags(topic string, n int) []any {
	candidates := append([]string{mockTags[0], topic}, mockTags[1:]...)
	seen := make(map[string]bool)
	out := make([]any, 0, n)
	for _, tag := range candidates {
		key := strings.ToLower(strings.TrimSpace(truncate(tag, MaxTagLen)))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == n {
			break
		}
	}
	return out
}
