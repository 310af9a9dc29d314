package generator

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Check 标识校验失败的规则。
type Check int

const (
	CheckNone Check = iota
	CheckPayload
	CheckPresence
	CheckHeadings
	CheckConclusion
	CheckWordCount
	CheckTags
)

// Verdict is the outcome of Validate. WordCount is 0 when validation stopped
// before the count was taken.
type Verdict struct {
	OK        bool
	Check     Check
	Reason    string
	WordCount int
}

var (
	reFence       = regexp.MustCompile("(?m)^```(?:html)?[ \\t]*\\n?|[ \\t]*\\n?```[ \\t]*$")
	reScriptBlock = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	reStyleBlock  = regexp.MustCompile(`(?is)<\s*style[^>]*>.*?<\s*/\s*style\s*>`)
	reStrayTag    = regexp.MustCompile(`(?i)<\s*/?\s*(?:script|style)\b[^>]*>`)
	reStyleAttr   = regexp.MustCompile(`(?i)(<[^>]*?)\sstyle\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	reAnyTag      = regexp.MustCompile(`<[^>]+>`)
	reWord        = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['-]+[\p{L}\p{N}_]+)*`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// 模型偶尔直接返回 Markdown，此时转成 HTML 再校验。
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var requiredKeys = []string{"title", "content", "seo_title", "seo_description", "seo_keywords"}

// ParseCandidate turns a decoded model payload into a GeneratedPost. A missing
// required key fails with ErrMalformedPayload and no partial result.
func ParseCandidate(payload map[string]any) (GeneratedPost, error) {
	for _, key := range requiredKeys {
		if _, ok := payload[key]; !ok {
			return GeneratedPost{}, fmt.Errorf("%w: missing key %q", ErrMalformedPayload, key)
		}
	}

	seoKeywords := truncate(strings.TrimSpace(scalar(payload["seo_keywords"])), MaxSEOKeywordsLen)
	return GeneratedPost{
		Title:          truncate(strings.TrimSpace(scalar(payload["title"])), MaxTitleLen),
		Content:        CleanHTML(scalar(payload["content"])),
		SEOTitle:       truncate(strings.TrimSpace(scalar(payload["seo_title"])), MaxSEOTitleLen),
		SEODescription: truncate(strings.TrimSpace(scalar(payload["seo_description"])), MaxSEODescriptionLen),
		SEOKeywords:    seoKeywords,
		Tags:           NormalizeTags(payload["tags"], seoKeywords),
	}, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// truncate 按字符截断，超出时去掉尾部空白。
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit]))
}

// CleanHTML strips code fences, script and style elements and inline style
// attributes from model output.
func CleanHTML(value string) string {
	text := strings.TrimSpace(value)
	text = reFence.ReplaceAllString(text, "")
	// 反复清理直到稳定，避免嵌套拼接出新的 script 标签。
	for {
		prev := text
		text = reScriptBlock.ReplaceAllString(text, "")
		text = reStyleBlock.ReplaceAllString(text, "")
		if text != prev {
			continue
		}
		text = reStrayTag.ReplaceAllString(text, "")
		// 只删除标签内的 style 属性，正文里的 "style = ..." 保留。
		text = reStyleAttr.ReplaceAllString(text, "$1")
		if text == prev {
			break
		}
	}
	text = strings.TrimSpace(text)
	if text != "" && !reAnyTag.MatchString(text) {
		text = renderMarkdown(text)
	}
	return text
}

func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return md
	}
	return strings.TrimSpace(buf.String())
}

// NormalizeTags accepts a list or a comma separated string. When nothing
// usable remains, tags come from fallback (the SEO keywords).
func NormalizeTags(raw any, fallback string) []string {
	out := normalizeTagList(splitTags(raw))
	if len(out) == 0 && strings.TrimSpace(fallback) != "" {
		out = normalizeTagList(splitTags(fallback))
	}
	return out
}

func splitTags(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case []string:
		parts = t
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			parts = append(parts, scalar(item))
		}
	case string:
		parts = strings.Split(t, ",")
	}
	return parts
}

func normalizeTagList(tags []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tag := range tags {
		cleaned := strings.TrimLeftFunc(tag, func(r rune) bool { return r == '#' || unicode.IsSpace(r) })
		cleaned = truncate(strings.TrimSpace(reSpaces.ReplaceAllString(cleaned, " ")), MaxTagLen)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// WordCount strips tags and counts word tokens.
func WordCount(html string) int {
	text := reAnyTag.ReplaceAllString(html, " ")
	return len(reWord.FindAllString(text, -1))
}

// Validate applies the structural checks in order and stops at the first
// failure.
func Validate(post GeneratedPost, limits Limits) Verdict {
	if post.Title == "" || post.Content == "" {
		return Verdict{Check: CheckPresence, Reason: "Missing title or content."}
	}

	lower := strings.ToLower(post.Content)
	count := WordCount(post.Content)
	if !strings.Contains(lower, "<h2") || !strings.Contains(lower, "<h3") {
		return Verdict{Check: CheckHeadings, Reason: "Missing required H2/H3 heading structure.", WordCount: count}
	}
	if !strings.Contains(lower, "conclusion") {
		return Verdict{Check: CheckConclusion, Reason: "Missing required conclusion section.", WordCount: count}
	}
	if count < limits.MinWords || count > limits.MaxWords {
		return Verdict{
			Check:     CheckWordCount,
			Reason:    fmt.Sprintf("Word count out of range: %d. Required %d-%d.", count, limits.MinWords, limits.MaxWords),
			WordCount: count,
		}
	}
	if len(post.Tags) < limits.MinTags {
		return Verdict{
			Check:     CheckTags,
			Reason:    fmt.Sprintf("Too few tags returned. Need at least %d related tags.", limits.MinTags),
			WordCount: count,
		}
	}
	return Verdict{OK: true, WordCount: count}
}
