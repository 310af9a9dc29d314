package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"blog_backend/store"
)

type commentRequest struct {
	Post uint   `json:"post" form:"post" validate:"required"`
	Text string `json:"text" form:"text" validate:"required"`
}

func (s *Server) ListComments(c echo.Context) error {
	var postID uint
	if raw := strings.TrimSpace(c.QueryParam("post")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, fieldError("post", "Select a valid choice. That choice is not one of the available choices."))
		}
		postID = uint(id)
	}
	comments, err := s.store.ListComments(c.Request().Context(), postID)
	if err != nil {
		return s.mapError(c, err)
	}
	out := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, toCommentResponse(cm))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) comment(c echo.Context) (*store.Comment, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return s.store.GetComment(c.Request().Context(), uint(id))
}

func (s *Server) GetComment(c echo.Context) error {
	cm, err := s.comment(c)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toCommentResponse(*cm))
}

func (s *Server) CreateComment(c echo.Context) error {
	ctx := c.Request().Context()
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, fieldError("text", "This field may not be blank."))
	}
	ok, err := s.store.PostExists(ctx, req.Post)
	if err != nil {
		return s.mapError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, fieldError("post", "Invalid pk \""+strconv.FormatUint(uint64(req.Post), 10)+"\" - object does not exist."))
	}

	me, _ := principal(c)
	cm := &store.Comment{PostID: req.Post, AuthorID: &me.UserID, Text: req.Text}
	if err := s.store.CreateComment(ctx, cm); err != nil {
		return s.mapError(c, err)
	}
	saved, err := s.store.GetComment(ctx, cm.ID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toCommentResponse(*saved))
}

// UpdateComment edits the text; a comment never moves between posts.
func (s *Server) UpdateComment(c echo.Context) error {
	cm, err := s.comment(c)
	if err != nil {
		return s.mapError(c, err)
	}
	if !canModify(c, cm.AuthorID) {
		return forbidden(c)
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, fieldError("text", "This field may not be blank."))
	}
	cm.Text = req.Text
	if err := s.store.UpdateComment(c.Request().Context(), cm); err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toCommentResponse(*cm))
}

func (s *Server) DeleteComment(c echo.Context) error {
	cm, err := s.comment(c)
	if err != nil {
		return s.mapError(c, err)
	}
	if !canModify(c, cm.AuthorID) {
		return forbidden(c)
	}
	if err := s.store.DeleteComment(c.Request().Context(), cm.ID); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
