package generator

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildGenerationPrompt(t *testing.T) {
	req := Request{Topic: "IELTS Writing Task 2", Keywords: "band 7, essay", Tone: ToneAcademic}
	p := BuildGenerationPrompt(req, DefaultLimits(), "")

	if !strings.Contains(p.System, "expert IELTS instructor and SEO content writer") {
		t.Errorf("unexpected system prompt: %s", p.System)
	}
	for _, want := range []string{
		"Topic: IELTS Writing Task 2",
		"Preferred keywords: band 7, essay",
		"Tone: academic",
		"Hard word range: 1200-1800 words",
		"Target about 1400 words",
		"at least 12 substantial paragraphs",
		"Keep title <= 60 chars",
		"Keep SEO description <= 160 chars",
		"Return 4-8 concise related tags",
		"title, content, seo_title, seo_description, seo_keywords, tags",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p.User, "Previous attempt failed") {
		t.Error("fresh prompt should not carry a correction section")
	}
}

func TestBuildGenerationPrompt_NoKeywords(t *testing.T) {
	p := BuildGenerationPrompt(Request{Topic: "Speaking", Tone: ToneExpert}, DefaultLimits(), "")
	if !strings.Contains(p.User, "Preferred keywords: None provided") {
		t.Errorf("expected placeholder keywords, got:\n%s", p.User)
	}
}

func TestBuildGenerationPrompt_CorrectionNote(t *testing.T) {
	note := correctionNote("Missing required conclusion section.", 1300, DefaultLimits())
	p := BuildGenerationPrompt(Request{Topic: "Speaking", Tone: ToneExpert}, DefaultLimits(), note)

	if !strings.Contains(p.User, "Previous attempt failed. Fix it strictly.\n"+note+"\nDo not repeat the same mistake.") {
		t.Errorf("correction note not appended verbatim:\n%s", p.User)
	}
	want := "Last output issue: Missing required conclusion section.\nPrevious content word count: 1300\n" +
		"Generate new output within 1200-1800 words with 4-8 relevant tags."
	if note != want {
		t.Errorf("correction note = %q, want %q", note, want)
	}
}

func TestBuildExpansionPrompt(t *testing.T) {
	prior := GeneratedPost{
		Title:   "Short draft",
		Content: "<h2>Intro</h2><p>too short</p>",
		Tags:    []string{"IELTS"},
	}
	p := BuildExpansionPrompt(Request{Topic: "Reading", Tone: ToneFriendly}, DefaultLimits(), prior, 400)

	if !strings.Contains(p.User, "Current word count: 400") {
		t.Error("expansion prompt missing prior word count")
	}
	if !strings.Contains(p.User, "between 1200 and 1800") {
		t.Error("expansion prompt missing target range")
	}
	baseline, _ := json.Marshal(prior)
	if !strings.Contains(p.User, string(baseline)) {
		t.Error("expansion prompt missing serialized baseline")
	}
	if p.System != systemRole {
		t.Error("expansion prompt should reuse the system role")
	}
}

func TestPromptTagRange_Clamped(t *testing.T) {
	limits := DefaultLimits()
	limits.MinTags = MaxTags
	p := BuildGenerationPrompt(Request{Topic: "Speaking", Tone: ToneExpert}, limits, "")
	if !strings.Contains(p.User, "Return 8-8 concise related tags") {
		t.Errorf("tag range not clamped:\n%s", p.User)
	}
	note := correctionNote("x", 10, limits)
	if !strings.HasSuffix(note, "with 8-8 relevant tags.") {
		t.Errorf("correction note = %q", note)
	}
}
