package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	tokenPath = "/api/token/"
	postsPath = "/api/posts/"

	// DescriptionLimit matches the post's seo_description column.
	DescriptionLimit = 160
)

var (
	ErrLogin    = errors.New("publisher: login failed")
	ErrRejected = errors.New("publisher: post rejected")
)

// Config holds the API location and the account posts are published as.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// PublishParams describes the content to be published.
type PublishParams struct {
	Path           string
	Title          string
	Category       uint
	SEOTitle       string
	SEODescription string
	SEOKeywords    string
	Tags           []string
	NoIndex        bool
}

type tokenResp struct {
	Access string `json:"access"`
	Detail string `json:"detail"`
}

type postPayload struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Category       *uint    `json:"category,omitempty"`
	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description"`
	SEOKeywords    string   `json:"seo_keywords,omitempty"`
	IsIndexable    bool     `json:"is_indexable"`
	Tags           []string `json:"tags,omitempty"`
}

type postResp struct {
	Slug string `json:"slug"`
}

// Publisher turns local markdown files into posts through the REST API.
type Publisher struct {
	cfg         Config
	client      *http.Client
	accessToken string
	md          goldmark.Markdown
	log         *zerolog.Logger
}

// New creates a Publisher and fetches the access token immediately so it can be reused.
func New(ctx context.Context, cfg Config, client *http.Client, logger *zerolog.Logger) (*Publisher, error) {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("publisher config must include base_url, username and password")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	accessToken, err := getAccessToken(ctx, client, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("base_url", cfg.BaseURL).Str("username", cfg.Username).Msg("publisher logged in")

	return &Publisher{
		cfg:         cfg,
		client:      client,
		accessToken: accessToken,
		md:          goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:         logger,
	}, nil
}

// Publish converts the file to HTML and creates a post. It returns the slug
// the server assigned.
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (string, error) {
	if params.Path == "" {
		return "", errors.New("content path is required")
	}
	raw, err := os.ReadFile(params.Path)
	if err != nil {
		return "", err
	}
	source := string(raw)

	title := strings.TrimSpace(params.Title)
	var contentHTML string
	switch strings.ToLower(filepath.Ext(params.Path)) {
	case ".html", ".htm":
		contentHTML = source
	default:
		if title == "" {
			title, source = splitTitle(source)
		}
		contentHTML, err = p.mdToHTML(source)
		if err != nil {
			return "", err
		}
		p.log.Debug().Str("path", params.Path).Msg("converted markdown to html")
	}
	if title == "" {
		return "", errors.New("title is required when the file has no leading # heading")
	}

	description := params.SEODescription
	if description == "" {
		description = defaultDigest(plainText(contentHTML), DescriptionLimit)
	}

	payload := postPayload{
		Title:          title,
		Content:        contentHTML,
		SEOTitle:       params.SEOTitle,
		SEODescription: description,
		SEOKeywords:    params.SEOKeywords,
		IsIndexable:    !params.NoIndex,
		Tags:           params.Tags,
	}
	if params.Category != 0 {
		payload.Category = &params.Category
	}

	slug, err := p.createPost(ctx, payload)
	if err != nil {
		return "", err
	}
	p.log.Info().Str("slug", slug).Str("title", title).Msg("post published")
	return slug, nil
}

func getAccessToken(ctx context.Context, client *http.Client, cfg Config) (string, error) {
	body, err := json.Marshal(map[string]string{"username": cfg.Username, "password": cfg.Password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrLogin, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || data.Access == "" {
		return "", fmt.Errorf("%w: status %d %s", ErrLogin, resp.StatusCode, data.Detail)
	}
	return data.Access, nil
}

func (p *Publisher) createPost(ctx context.Context, payload postPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+postsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var data postResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	return data.Slug, nil
}

func (p *Publisher) mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// splitTitle takes a leading "# " heading as the title and removes it from
// the body.
func splitTitle(md string) (string, string) {
	trimmed := strings.TrimLeft(md, "\r\n\t ")
	line, rest, _ := strings.Cut(trimmed, "\n")
	if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
		return strings.TrimSpace(h), rest
	}
	return "", md
}

var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

func plainText(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	replacer := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")
	return replacer.Replace(text)
}

// defaultDigest collapses whitespace and cuts at limit runes, preferring a
// word boundary.
func defaultDigest(text string, limit int) string {
	joined := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	runes := []rune(joined)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
