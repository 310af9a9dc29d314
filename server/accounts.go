package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"blog_backend/auth"
	"blog_backend/store"
)

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Email    string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

type tokenRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" validate:"required"`
}

func (s *Server) SignUp(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return s.mapError(c, err)
	}
	u := &store.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := s.store.CreateUser(c.Request().Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return c.JSON(http.StatusBadRequest, fieldError("username", "A user with that username already exists."))
		}
		return s.mapError(c, err)
	}
	s.log.Info().Str("request_id", requestID(c)).Str("username", u.Username).Msg("user registered")
	return c.JSON(http.StatusCreated, UserResponse{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) ObtainToken(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	u, err := s.store.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return s.mapError(c, err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: auth.ErrInvalidCredentials.Error(), Code: "no_active_account"})
	}
	pair, err := s.issuer.Pair(auth.Principal{UserID: u.ID, Username: u.Username, Staff: u.IsStaff})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) RefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	pair, err := s.issuer.Refresh(req.Refresh)
	if errors.Is(err, auth.ErrInvalidToken) {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: auth.ErrInvalidToken.Error(), Code: "token_not_valid"})
	}
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}
