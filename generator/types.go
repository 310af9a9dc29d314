package generator

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Tone is the writing register requested from the model.
type Tone string

const (
	ToneAcademic Tone = "academic"
	ToneFriendly Tone = "friendly"
	ToneExpert   Tone = "expert"
)

// Tones lists the accepted tones in display order.
var Tones = []Tone{ToneAcademic, ToneFriendly, ToneExpert}

// ParseTone maps raw input to a Tone. Empty input yields the default.
func ParseTone(raw string) (Tone, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ToneExpert, nil
	}
	for _, t := range Tones {
		if string(t) == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTone, raw)
}

// Request is a single generation request.
type Request struct {
	Topic    string
	Keywords string
	Tone     Tone
}

// Normalize trims the request and applies defaults. It fails before any
// provider call when the topic is blank or the tone is unknown.
func (r Request) Normalize() (Request, error) {
	out := Request{
		Topic:    strings.TrimSpace(r.Topic),
		Keywords: strings.TrimSpace(r.Keywords),
	}
	if out.Topic == "" {
		return Request{}, ErrTopicRequired
	}
	tone, err := ParseTone(string(r.Tone))
	if err != nil {
		return Request{}, err
	}
	out.Tone = tone
	return out, nil
}

// GeneratedPost is a parsed candidate returned by the model. Values are
// never modified after parsing; expansion produces a new one.
type GeneratedPost struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	SEOTitle       string   `json:"seo_title"`
	SEODescription string   `json:"seo_description"`
	SEOKeywords    string   `json:"seo_keywords"`
	Tags           []string `json:"tags"`
}

func (p GeneratedPost) clone() GeneratedPost {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// Limits holds the structural constraints a candidate must satisfy.
type Limits struct {
	MinWords    int
	MaxWords    int
	TargetWords int
	MinTags     int
}

// Field ceilings, in characters.
const (
	MaxTitleLen          = 60
	MaxSEOTitleLen       = 60
	MaxSEODescriptionLen = 160
	MaxSEOKeywordsLen    = 255
	MaxTagLen            = 60

	// MaxTags caps the normalized tag list and the tag range asked for.
	MaxTags = 8
)

func DefaultLimits() Limits {
	return Limits{
		MinWords:    1200,
		MaxWords:    1800,
		TargetWords: 1400,
		MinTags:     3,
	}
}

// Settings configures an Agent. It is built once at start-up.
type Settings struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	Temperature float64
	Limits      Limits
}

func DefaultSettings() Settings {
	return Settings{
		Model:       "gpt-4.1-mini",
		Timeout:     60 * time.Second,
		MaxAttempts: 3,
		Temperature: 0.2,
		Limits:      DefaultLimits(),
	}
}
