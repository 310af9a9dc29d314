package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"blog_backend/generator"
	"blog_backend/store"
)

// postRequest carries create and update bodies. Nil fields are left alone
// on PATCH and reset on PUT.
type postRequest struct {
	Title          *string  `json:"title" form:"title" validate:"omitempty,max=255"`
	Content        *string  `json:"content" form:"content"`
	Category       *uint    `json:"category" form:"category"`
	FeaturedImage  *string  `json:"featured_image" form:"featured_image" validate:"omitempty,max=255"`
	SEOTitle       *string  `json:"seo_title" form:"seo_title" validate:"omitempty,max=60"`
	SEODescription *string  `json:"seo_description" form:"seo_description" validate:"omitempty,max=160"`
	SEOKeywords    *string  `json:"seo_keywords" form:"seo_keywords" validate:"omitempty,max=255"`
	IsIndexable    *bool    `json:"is_indexable" form:"is_indexable"`
	CanonicalURL   *string  `json:"canonical_url" form:"canonical_url" validate:"omitempty,url,max=200"`
	Tags           []string `json:"tags" form:"tags"`
}

func (s *Server) ListPosts(c echo.Context) error {
	ctx := c.Request().Context()
	f := store.PostFilter{
		Search:   c.QueryParam("search"),
		Ordering: c.QueryParam("ordering"),
		Limit:    PageSize,
	}

	if raw := strings.TrimSpace(c.QueryParam("category")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			f.CategoryID = uint(id)
		} else {
			cat, err := s.store.GetCategory(ctx, raw)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return c.JSON(http.StatusBadRequest, fieldError("category", "Select a valid choice. That choice is not one of the available choices."))
				}
				return s.mapError(c, err)
			}
			f.CategoryID = cat.ID
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("author")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, fieldError("author", "Select a valid choice. That choice is not one of the available choices."))
		}
		f.AuthorID = uint(id)
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusNotFound, DetailResponse{Detail: "Invalid page."})
		}
		page = n
	}
	f.Offset = (page - 1) * PageSize

	posts, total, err := s.store.ListPosts(ctx, f)
	if err != nil {
		return s.mapError(c, err)
	}
	if page > 1 && int64(f.Offset) >= total {
		return c.JSON(http.StatusNotFound, DetailResponse{Detail: "Invalid page."})
	}

	out := Page[PostResponse]{Count: total, Results: make([]PostResponse, 0, len(posts))}
	for _, p := range posts {
		out.Results = append(out.Results, toPostResponse(c, p))
	}
	if int64(page*PageSize) < total {
		next := pageURL(c, page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		out.Previous = &prev
	}
	return c.JSON(http.StatusOK, out)
}

// pageURL rebuilds the request URL pointing at another page.
func pageURL(c echo.Context, page int) string {
	u := *c.Request().URL
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	u.Scheme = c.Scheme()
	u.Host = c.Request().Host
	return u.String()
}

func (s *Server) GetPost(c echo.Context) error {
	p, err := s.store.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toPostResponse(c, *p))
}

func (s *Server) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()
	var req postRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}

	me, _ := principal(c)
	p := &store.Post{AuthorID: &me.UserID}
	if err := s.applyPost(c, p, req, true); err != nil {
		return s.mapError(c, err)
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return s.mapError(c, err)
	}
	saved, err := s.store.GetPost(ctx, p.Slug)
	if err != nil {
		return s.mapError(c, err)
	}
	s.log.Info().Str("request_id", requestID(c)).Str("slug", saved.Slug).Msg("post created")
	return c.JSON(http.StatusCreated, toPostResponse(c, *saved))
}

// UpdatePost handles PUT (full) and PATCH (partial).
func (s *Server) UpdatePost(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := s.store.GetPost(ctx, c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	if !canModify(c, p.AuthorID) {
		return forbidden(c)
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	if err := s.applyPost(c, p, req, c.Request().Method == http.MethodPut); err != nil {
		return s.mapError(c, err)
	}
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return s.mapError(c, err)
	}
	saved, err := s.store.GetPost(ctx, p.Slug)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toPostResponse(c, *saved))
}

func (s *Server) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := s.store.GetPost(ctx, c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	if !canModify(c, p.AuthorID) {
		return forbidden(c)
	}
	if err := s.store.DeletePost(ctx, p.Slug); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// applyPost copies req onto p. With full set, required fields are checked
// and absent optional fields fall back to their defaults.
func (s *Server) applyPost(c echo.Context, p *store.Post, req postRequest, full bool) error {
	ctx := c.Request().Context()
	errs := FieldErrors{}

	if full {
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			errs.add("title", "This field is required.")
		}
		if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
			errs.add("content", "This field is required.")
		}
	}

	str := func(dst *string, v *string) {
		switch {
		case v != nil:
			*dst = *v
		case full:
			*dst = ""
		}
	}
	str(&p.Title, req.Title)
	str(&p.Content, req.Content)
	str(&p.FeaturedImage, req.FeaturedImage)
	str(&p.SEOTitle, req.SEOTitle)
	str(&p.SEODescription, req.SEODescription)
	str(&p.SEOKeywords, req.SEOKeywords)
	p.Title = strings.TrimSpace(p.Title)

	switch {
	case req.IsIndexable != nil:
		p.IsIndexable = *req.IsIndexable
	case full:
		p.IsIndexable = true
	}

	switch {
	case req.CanonicalURL != nil && strings.TrimSpace(*req.CanonicalURL) != "":
		u := strings.TrimSpace(*req.CanonicalURL)
		p.CanonicalURL = &u
	case req.CanonicalURL != nil || full:
		p.CanonicalURL = nil
	}

	switch {
	case req.Category != nil && *req.Category != 0:
		cat, err := s.store.GetCategoryByID(ctx, *req.Category)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.add("category", fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatUint(uint64(*req.Category), 10)))
		case err != nil:
			return err
		default:
			p.CategoryID = &cat.ID
			p.Category = cat
		}
	case req.Category != nil || full:
		p.CategoryID = nil
		p.Category = nil
	}

	if len(errs) > 0 {
		return errs
	}

	switch {
	case req.Tags != nil:
		tags, err := s.store.EnsureTags(ctx, generator.NormalizeTags(req.Tags, ""))
		if err != nil {
			return err
		}
		p.Tags = tags
	case full:
		p.Tags = nil
	}
	return nil
}

func canModify(c echo.Context, authorID *uint) bool {
	me, ok := principal(c)
	if !ok {
		return false
	}
	return me.Staff || (authorID != nil && *authorID == me.UserID)
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, DetailResponse{Detail: "You do not have permission to perform this action."})
}
