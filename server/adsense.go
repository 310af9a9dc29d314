package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"blog_backend/store"
)

type adSenseRequest struct {
	Enabled             bool    `json:"enabled"`
	PublisherID         *string `json:"publisher_id" validate:"omitempty,max=50"`
	HomepageAdUnitID    *string `json:"homepage_ad_unit_id" validate:"omitempty,max=50"`
	PostSidebarAdUnitID *string `json:"post_sidebar_ad_unit_id" validate:"omitempty,max=50"`
	PostContentAdUnitID *string `json:"post_content_ad_unit_id" validate:"omitempty,max=50"`
}

func (s *Server) AdSenseSettings(c echo.Context) error {
	a, err := s.store.AdSenseSettings(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toAdSenseResponse(a))
}

// UpdateAdSenseSettings replaces the singleton row. Staff only.
func (s *Server) UpdateAdSenseSettings(c echo.Context) error {
	var req adSenseRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return s.mapError(c, err)
	}
	a := &store.AdSenseSettings{
		Enabled:             req.Enabled,
		PublisherID:         req.PublisherID,
		HomepageAdUnitID:    req.HomepageAdUnitID,
		PostSidebarAdUnitID: req.PostSidebarAdUnitID,
		PostContentAdUnitID: req.PostContentAdUnitID,
	}
	if err := s.store.SaveAdSenseSettings(c.Request().Context(), a); err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toAdSenseResponse(a))
}
