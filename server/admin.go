package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"blog_backend/admin"
	"blog_backend/store"
)

type adminPostResponse struct {
	Post    PostResponse `json:"post"`
	Mode    string       `json:"mode"`
	Message string       `json:"message,omitempty"`
}

type adminErrorResponse struct {
	Errors admin.Errors   `json:"errors"`
	Form   admin.PostForm `json:"form"`
}

// AdminCreatePost submits the admin post form. On failure the submitted
// form comes back untouched next to the errors.
func (s *Server) AdminCreatePost(c echo.Context) error {
	return s.submitAdminForm(c, nil, http.StatusCreated)
}

// AdminUpdatePost submits the same form against an existing post.
func (s *Server) AdminUpdatePost(c echo.Context) error {
	existing, err := s.store.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return s.mapError(c, err)
	}
	return s.submitAdminForm(c, existing, http.StatusOK)
}

func (s *Server) submitAdminForm(c echo.Context, existing *store.Post, status int) error {
	var f admin.PostForm
	if err := c.Bind(&f); err != nil {
		return err
	}
	me, _ := principal(c)

	res, err := s.admin.Submit(c.Request().Context(), f, existing, me.UserID)
	var ferrs admin.Errors
	if errors.As(err, &ferrs) {
		return c.JSON(http.StatusBadRequest, adminErrorResponse{Errors: ferrs, Form: f})
	}
	if err != nil {
		return s.mapError(c, err)
	}

	saved, err := s.store.GetPost(c.Request().Context(), res.Post.Slug)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(status, adminPostResponse{Post: toPostResponse(c, *saved), Mode: res.Mode, Message: res.Message})
}
