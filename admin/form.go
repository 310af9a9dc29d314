package admin

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"blog_backend/generator"
	"blog_backend/store"
)

const (
	ModeManual = "manual"
	ModeAI     = "ai"

	// NonField collects errors that belong to the whole form.
	NonField = "__all__"

	GeneratedMessage = "AI content generated successfully. You can edit the generated fields before publishing."
)

// PostForm is the admin post form. Manual fields and AI fields travel
// together; the resolved mode decides which ones matter.
type PostForm struct {
	GenerationMode string   `json:"generation_mode" form:"generation_mode"`
	AITopic        string   `json:"ai_topic" form:"ai_topic" validate:"max=255"`
	AIKeywords     string   `json:"ai_keywords" form:"ai_keywords" validate:"max=255"`
	AITone         string   `json:"ai_tone" form:"ai_tone"`
	Title          string   `json:"title" form:"title" validate:"max=255"`
	Slug           string   `json:"slug" form:"slug" validate:"max=50"`
	Content        string   `json:"content" form:"content"`
	Category       string   `json:"category" form:"category"`
	Author         *uint    `json:"author" form:"author"`
	FeaturedImage  string   `json:"featured_image" form:"featured_image" validate:"max=255"`
	SEOTitle       string   `json:"seo_title" form:"seo_title" validate:"max=60"`
	SEODescription string   `json:"seo_description" form:"seo_description" validate:"max=160"`
	SEOKeywords    string   `json:"seo_keywords" form:"seo_keywords" validate:"max=255"`
	CanonicalURL   string   `json:"canonical_url" form:"canonical_url" validate:"omitempty,url,max=200"`
	IsIndexable    *bool    `json:"is_indexable" form:"is_indexable"`
	Tags           []string `json:"tags" form:"tags"`
}

// ResolveMode returns the mode the form runs in. The selected mode wins
// unless both manual fields are empty and a topic is present.
func ResolveMode(f PostForm) string {
	mode := strings.ToLower(strings.TrimSpace(f.GenerationMode))
	if strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Content) == "" && strings.TrimSpace(f.AITopic) != "" {
		return ModeAI
	}
	if mode == "" {
		return ModeManual
	}
	return mode
}

// Errors maps form fields to their messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var parts []string
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Generator produces a post for the AI mode.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (generator.GeneratedPost, error)
}

// PostStore is the part of the store the form writes through.
type PostStore interface {
	GetCategory(ctx context.Context, slug string) (*store.Category, error)
	GetUser(ctx context.Context, id uint) (*store.User, error)
	GetPost(ctx context.Context, slug string) (*store.Post, error)
	EnsureTags(ctx context.Context, names []string) ([]store.Tag, error)
	CreatePost(ctx context.Context, p *store.Post) error
	UpdatePost(ctx context.Context, p *store.Post) error
}

// Result is a saved post and the message to show the operator.
type Result struct {
	Post    *store.Post
	Mode    string
	Message string
}

type PostAdmin struct {
	gen      Generator
	store    PostStore
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewPostAdmin(gen Generator, st PostStore, logger *zerolog.Logger) *PostAdmin {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PostAdmin{gen: gen, store: st, validate: v, log: logger}
}

// Submit cleans the form and saves it. A nil existing creates a new post,
// otherwise existing is edited in place; AI mode regenerates the content in
// both cases. The author comes from the form, then the existing post, then
// authorID. Validation and generation problems come back as Errors and
// nothing is saved.
func (a *PostAdmin) Submit(ctx context.Context, f PostForm, existing *store.Post, authorID uint) (*Result, error) {
	errs := Errors{}
	mode := ResolveMode(f)
	if mode != ModeManual && mode != ModeAI {
		errs.Add("generation_mode", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", f.GenerationMode))
	}
	a.checkFields(f, errs)

	var category *store.Category
	if slug := strings.TrimSpace(f.Category); slug != "" {
		c, err := a.store.GetCategory(ctx, slug)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return nil, err
		default:
			category = c
		}
	}

	author, err := a.resolveAuthor(ctx, f, existing, authorID, errs)
	if err != nil {
		return nil, err
	}
	if err := a.checkSlug(ctx, f, existing, errs); err != nil {
		return nil, err
	}

	var generated *generator.GeneratedPost
	switch mode {
	case ModeManual:
		if strings.TrimSpace(f.Title) == "" {
			errs.Add("title", "Title is required in manual mode.")
		}
		if strings.TrimSpace(f.Content) == "" {
			errs.Add("content", "Content is required in manual mode.")
		}
	case ModeAI:
		generated = a.generate(ctx, f, errs)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return a.save(ctx, f, mode, existing, category, generated, author)
}

func (a *PostAdmin) resolveAuthor(ctx context.Context, f PostForm, existing *store.Post, authorID uint, errs Errors) (*uint, error) {
	switch {
	case f.Author != nil:
		u, err := a.store.GetUser(ctx, *f.Author)
		if errors.Is(err, store.ErrNotFound) {
			errs.Add("author", "Select a valid choice. That choice is not one of the available choices.")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &u.ID, nil
	case existing != nil:
		return existing.AuthorID, nil
	case authorID != 0:
		return &authorID, nil
	}
	return nil, nil
}

// checkSlug 只校验手动填写且与当前不同的 slug。
func (a *PostAdmin) checkSlug(ctx context.Context, f PostForm, existing *store.Post, errs Errors) error {
	sl := strings.TrimSpace(f.Slug)
	if sl == "" || (existing != nil && existing.Slug == sl) {
		return nil
	}
	_, err := a.store.GetPost(ctx, sl)
	switch {
	case err == nil:
		errs.Add("slug", "Post with this Slug already exists.")
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

func (a *PostAdmin) checkFields(f PostForm, errs Errors) {
	err := a.validate.Struct(f)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "max":
			errs.Add(fe.Field(), fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param()))
		case "url":
			errs.Add(fe.Field(), "Enter a valid URL.")
		default:
			errs.Add(fe.Field(), "Enter a valid value.")
		}
	}
}

// generate 只有在其它字段都通过时才调用模型。
func (a *PostAdmin) generate(ctx context.Context, f PostForm, errs Errors) *generator.GeneratedPost {
	topic := strings.TrimSpace(f.AITopic)
	if topic == "" {
		errs.Add("ai_topic", "AI topic is required in AI mode.")
		return nil
	}
	tone, err := generator.ParseTone(f.AITone)
	if err != nil {
		errs.Add("ai_tone", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", f.AITone))
		return nil
	}
	if len(errs) > 0 {
		return nil
	}

	post, err := a.gen.Generate(ctx, generator.Request{Topic: topic, Keywords: f.AIKeywords, Tone: tone})
	if err != nil {
		a.log.Warn().Err(err).Str("topic", topic).Msg("admin ai generation failed")
		errs.Add(NonField, err.Error())
		return nil
	}
	return &post
}

func (a *PostAdmin) save(ctx context.Context, f PostForm, mode string, existing *store.Post, category *store.Category, generated *generator.GeneratedPost, author *uint) (*Result, error) {
	p := &store.Post{}
	if existing != nil {
		p = existing
		p.Category, p.Author, p.Comments = nil, nil, nil
	}
	p.Title = strings.TrimSpace(f.Title)
	if sl := strings.TrimSpace(f.Slug); sl != "" || existing == nil {
		p.Slug = sl
	}
	p.Content = f.Content
	p.FeaturedImage = f.FeaturedImage
	p.SEOTitle = f.SEOTitle
	p.SEODescription = f.SEODescription
	p.SEOKeywords = f.SEOKeywords
	p.IsIndexable = f.IsIndexable == nil || *f.IsIndexable
	p.CanonicalURL = nil
	if u := strings.TrimSpace(f.CanonicalURL); u != "" {
		p.CanonicalURL = &u
	}
	p.CategoryID = nil
	if category != nil {
		p.CategoryID = &category.ID
	}
	p.AuthorID = author

	tagNames := f.Tags
	if generated != nil {
		p.Title = generated.Title
		p.Content = generated.Content
		p.SEOTitle = generated.SEOTitle
		p.SEODescription = generated.SEODescription
		p.SEOKeywords = generated.SEOKeywords
		p.FeaturedImage = ""
		tagNames = generated.Tags
	}

	p.Tags = nil
	if len(tagNames) > 0 {
		tags, err := a.store.EnsureTags(ctx, tagNames)
		if err != nil {
			return nil, fmt.Errorf("ensure tags: %w", err)
		}
		p.Tags = tags
	}
	save := a.store.CreatePost
	if existing != nil {
		save = a.store.UpdatePost
	}
	if err := save(ctx, p); err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}

	res := &Result{Post: p, Mode: mode}
	if generated != nil {
		res.Message = GeneratedMessage
		a.log.Info().Str("slug", p.Slug).Int("tags", len(p.Tags)).Msg("ai post saved from admin")
	}
	return res, nil
}
