package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SitemapXML builds the sitemap on every request.
func (s *Server) SitemapXML(c echo.Context) error {
	if s.sitemap == nil {
		return c.JSON(http.StatusNotFound, DetailResponse{Detail: "Not found."})
	}
	body, err := s.sitemap.Build(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", body)
}
