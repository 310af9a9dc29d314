package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt is the message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

const systemRole = "You are an expert IELTS instructor and SEO content writer. " +
	"Follow constraints exactly and return JSON only."

const responseKeys = "title, content, seo_title, seo_description, seo_keywords, tags"

func keywordsOrNone(keywords string) string {
	if strings.TrimSpace(keywords) == "" {
		return "None provided"
	}
	return keywords
}

// BuildGenerationPrompt builds the prompt for a fresh attempt. A non-empty
// correctionNote describes the previous attempt's failure.
func BuildGenerationPrompt(req Request, limits Limits, correctionNote string) Prompt {
	var sb strings.Builder
	sb.WriteString("Generate a complete IELTS educational blog article and metadata.\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic))
	sb.WriteString(fmt.Sprintf("Preferred keywords: %s\n", keywordsOrNone(req.Keywords)))
	sb.WriteString(fmt.Sprintf("Tone: %s\n\n", req.Tone))

	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Hard word range: %d-%d words\n", limits.MinWords, limits.MaxWords))
	sb.WriteString(fmt.Sprintf("- Target about %d words for reliability\n", limits.TargetWords))
	sb.WriteString("- Use at least 12 substantial paragraphs in total\n")
	sb.WriteString("- Each H3 section should include 2-3 detailed paragraphs\n")
	sb.WriteString("- SEO optimized and natural\n")
	sb.WriteString("- Output content in clean semantic HTML only (no markdown)\n")
	sb.WriteString("- Include one H2 introduction section\n")
	sb.WriteString("- Use multiple H3 subsections\n")
	sb.WriteString("- Include a conclusion section (word 'Conclusion' in heading)\n")
	sb.WriteString("- No inline CSS, no JavaScript, no scripts\n")
	sb.WriteString(fmt.Sprintf("- Keep title <= %d chars\n", MaxTitleLen))
	sb.WriteString(fmt.Sprintf("- Keep SEO title <= %d chars\n", MaxSEOTitleLen))
	sb.WriteString(fmt.Sprintf("- Keep SEO description <= %d chars\n", MaxSEODescriptionLen))
	sb.WriteString(fmt.Sprintf("- Return %d-%d concise related tags (each 1-3 words)\n", promptMinTags(limits), MaxTags))
	sb.WriteString("- Ensure Google-safe, human-readable writing\n\n")
	sb.WriteString("Return strict JSON with keys exactly:\n")
	sb.WriteString(responseKeys)

	if note := strings.TrimSpace(correctionNote); note != "" {
		sb.WriteString("\n\nPrevious attempt failed. Fix it strictly.\n")
		sb.WriteString(correctionNote)
		sb.WriteString("\nDo not repeat the same mistake.")
	}

	return Prompt{System: systemRole, User: sb.String()}
}

// BuildExpansionPrompt asks the model to lengthen a candidate that came back
// too short, using it as the baseline.
func BuildExpansionPrompt(req Request, limits Limits, prior GeneratedPost, priorWordCount int) Prompt {
	baseline, err := json.Marshal(prior)
	if err != nil {
		// GeneratedPost only holds strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("generator: marshal baseline: %v", err))
	}

	var sb strings.Builder
	sb.WriteString("The previous response was too short. Expand and rewrite it so it passes all constraints.\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic))
	sb.WriteString(fmt.Sprintf("Preferred keywords: %s\n", keywordsOrNone(req.Keywords)))
	sb.WriteString(fmt.Sprintf("Tone: %s\n", req.Tone))
	sb.WriteString(fmt.Sprintf("Current word count: %d\n\n", priorWordCount))

	sb.WriteString("Hard requirements:\n")
	sb.WriteString(fmt.Sprintf("- Final content word count must be between %d and %d\n", limits.MinWords, limits.MaxWords))
	sb.WriteString("- Keep clean semantic HTML only\n")
	sb.WriteString("- Must include H2 intro, multiple H3 sections, and a Conclusion section\n")
	sb.WriteString("- No scripts, no style tags, no inline CSS\n")
	sb.WriteString(fmt.Sprintf("- Keep SEO title <= %d and SEO description <= %d\n", MaxSEOTitleLen, MaxSEODescriptionLen))
	sb.WriteString(fmt.Sprintf("- Keep/return %d-%d concise related tags\n\n", promptMinTags(limits), MaxTags))
	sb.WriteString("Existing JSON draft to expand (use as baseline and improve):\n")
	sb.Write(baseline)
	sb.WriteString("\n\nReturn strict JSON with keys exactly:\n")
	sb.WriteString(responseKeys)

	return Prompt{System: systemRole, User: sb.String()}
}

// promptMinTags asks for one tag more than validation requires so that a
// deduplicated answer still clears the minimum, never more than MaxTags.
func promptMinTags(limits Limits) int {
	return min(limits.MinTags+1, MaxTags)
}

// correctionNote describes a failed attempt for the next prompt.
func correctionNote(reason string, wordCount int, limits Limits) string {
	return fmt.Sprintf(
		"Last output issue: %s\nPrevious content word count: %d\nGenerate new output within %d-%d words with %d-%d relevant tags.",
		reason, wordCount, limits.MinWords, limits.MaxWords, promptMinTags(limits), MaxTags,
	)
}
