package server

import (
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"blog_backend/store"
)

// Page is a page-number paginated list.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type PostResponse struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Author           *string           `json:"author"`
	Category         *uint             `json:"category"`
	CategoryName     *string           `json:"category_name"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Slug             string            `json:"slug"`
	Comments         []CommentResponse `json:"comments"`
	FeaturedImage    *string           `json:"featured_image"`
	FeaturedImageURL *string           `json:"featured_image_url"`
	SEOTitle         string            `json:"seo_title"`
	SEODescription   string            `json:"seo_description"`
	SEOKeywords      string            `json:"seo_keywords"`
	IsIndexable      bool              `json:"is_indexable"`
	CanonicalURL     *string           `json:"canonical_url"`
	Tags             []string          `json:"tags"`
}

type CommentResponse struct {
	ID        uint      `json:"id"`
	Author    *string   `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Post      uint      `json:"post"`
}

type CategoryResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int64  `json:"post_count"`
}

type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AdSenseResponse struct {
	Enabled             bool    `json:"enabled"`
	PublisherID         *string `json:"publisher_id"`
	HomepageAdUnitID    *string `json:"homepage_ad_unit_id"`
	PostSidebarAdUnitID *string `json:"post_sidebar_ad_unit_id"`
	PostContentAdUnitID *string `json:"post_content_ad_unit_id"`
}

func username(u *store.User) *string {
	if u == nil {
		return nil
	}
	return &u.Username
}

func toCommentResponse(cm store.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		Author:    username(cm.Author),
		Text:      cm.Text,
		CreatedAt: cm.CreatedAt,
		Post:      cm.PostID,
	}
}

func toPostResponse(c echo.Context, p store.Post) PostResponse {
	out := PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		Author:         username(p.Author),
		Category:       p.CategoryID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Slug:           p.Slug,
		Comments:       make([]CommentResponse, 0, len(p.Comments)),
		SEOTitle:       p.SEOTitle,
		SEODescription: p.SEODescription,
		SEOKeywords:    p.SEOKeywords,
		IsIndexable:    p.IsIndexable,
		CanonicalURL:   p.CanonicalURL,
		Tags:           p.TagNames(),
	}
	if p.Category != nil {
		out.CategoryName = &p.Category.Name
	}
	for _, cm := range p.Comments {
		out.Comments = append(out.Comments, toCommentResponse(cm))
	}
	if p.FeaturedImage != "" {
		img := p.FeaturedImage
		abs := mediaURL(c, img)
		out.FeaturedImage = &img
		out.FeaturedImageURL = &abs
	}
	return out
}

// mediaURL makes a stored media path absolute against the request host.
func mediaURL(c echo.Context, name string) string {
	if u, err := url.Parse(name); err == nil && u.IsAbs() {
		return name
	}
	return c.Scheme() + "://" + c.Request().Host + "/media/" + strings.TrimPrefix(name, "/")
}

func toAdSenseResponse(a *store.AdSenseSettings) AdSenseResponse {
	return AdSenseResponse{
		Enabled:             a.Enabled,
		PublisherID:         a.PublisherID,
		HomepageAdUnitID:    a.HomepageAdUnitID,
		PostSidebarAdUnitID: a.PostSidebarAdUnitID,
		PostContentAdUnitID: a.PostContentAdUnitID,
	}
}
