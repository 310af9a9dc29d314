package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"blog_backend/store"
)

type categoryRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
	Slug string `json:"slug" form:"slug" validate:"omitempty,max=50"`
}

type tagRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=60"`
}

func (s *Server) ListCategories(c echo.Context) error {
	cats, err := s.store.ListCategories(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	out := make([]CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		out = append(out, CategoryResponse(cat))
	}
	return c.JSON(http.StatusOK, out)
}

// category resolves the :id parameter, which may also be a slug.
func (s *Server) category(c echo.Context) (*store.Category, error) {
	raw := c.Param("id")
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return s.store.GetCategoryByID(c.Request().Context(), uint(id))
	}
	return s.store.GetCategory(c.Request().Context(), raw)
}

func (s *Server) categoryResponse(c echo.Context, cat *store.Category) (CategoryResponse, error) {
	n, err := s.store.CountCategoryPosts(c.Request().Context(), cat.ID)
	if err != nil {
		return CategoryResponse{}, err
	}
	return CategoryResponse{ID: cat.ID, Name: cat.Name, Slug: cat.Slug, PostCount: n}, nil
}

func (s *Server) GetCategory(c echo.Context) error {
	cat, err := s.category(c)
	if err != nil {
		return s.mapError(c, err)
	}
	out, err := s.categoryResponse(c, cat)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	cat := &store.Category{Name: strings.TrimSpace(req.Name), Slug: strings.TrimSpace(req.Slug)}
	if err := s.store.SaveCategory(c.Request().Context(), cat); err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, CategoryResponse{ID: cat.ID, Name: cat.Name, Slug: cat.Slug})
}

func (s *Server) UpdateCategory(c echo.Context) error {
	cat, err := s.category(c)
	if err != nil {
		return s.mapError(c, err)
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if c.Request().Method == http.MethodPatch && req.Name == "" {
		req.Name = cat.Name
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	cat.Name = strings.TrimSpace(req.Name)
	if slug := strings.TrimSpace(req.Slug); slug != "" {
		cat.Slug = slug
	}
	if err := s.store.SaveCategory(c.Request().Context(), cat); err != nil {
		return s.mapError(c, err)
	}
	out, err := s.categoryResponse(c, cat)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) DeleteCategory(c echo.Context) error {
	cat, err := s.category(c)
	if err != nil {
		return s.mapError(c, err)
	}
	if err := s.store.DeleteCategory(c.Request().Context(), cat.Slug); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) ListTags(c echo.Context) error {
	tags, err := s.store.ListTags(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagResponse(t))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) GetTag(c echo.Context) error {
	t, err := s.store.GetTag(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, TagResponse(*t))
}

func (s *Server) CreateTag(c echo.Context) error {
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	t := &store.Tag{Name: req.Name}
	if err := s.store.SaveTag(c.Request().Context(), t); err != nil {
		return s.tagError(c, err)
	}
	return c.JSON(http.StatusCreated, TagResponse(*t))
}

func (s *Server) UpdateTag(c echo.Context) error {
	t, err := s.store.GetTag(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	t.Name = req.Name
	if err := s.store.SaveTag(c.Request().Context(), t); err != nil {
		return s.tagError(c, err)
	}
	return c.JSON(http.StatusOK, TagResponse(*t))
}

func (s *Server) tagError(c echo.Context, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return c.JSON(http.StatusBadRequest, fieldError("name", "tag with this name already exists."))
	}
	return s.mapError(c, err)
}

func (s *Server) DeleteTag(c echo.Context) error {
	if err := s.store.DeleteTag(c.Request().Context(), c.Param("slug")); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
