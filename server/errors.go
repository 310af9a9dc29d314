package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"blog_backend/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// DetailResponse is the error body of the REST resources.
type DetailResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// FieldErrors maps request fields to their messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Error() string {
	return fmt.Sprintf("invalid fields: %v", map[string][]string(fe))
}

func (fe FieldErrors) add(field, msg string) FieldErrors {
	fe[field] = append(fe[field], msg)
	return fe
}

func fieldError(field, msg string) FieldErrors {
	return FieldErrors{}.add(field, msg)
}

func validationMessages(verrs validator.ValidationErrors) FieldErrors {
	out := FieldErrors{}
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "This field is required."
		case "min":
			msg = fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		case "max":
			msg = fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		case "email":
			msg = "Enter a valid email address."
		case "url":
			msg = "Enter a valid URL."
		default:
			msg = "Enter a valid value."
		}
		out.add(fe.Field(), msg)
	}
	return out
}

func (s *Server) mapError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	var ferrs FieldErrors

	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, DetailResponse{Detail: "Not found."})
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, validationMessages(verrs))
	case errors.As(err, &ferrs):
		return c.JSON(http.StatusBadRequest, ferrs)
	case errors.Is(err, store.ErrConflict):
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "An object with this value already exists."})
	default:
		s.log.Error().Err(err).Str("request_id", requestID(c)).Msg("internal error")
		return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "Internal server error."})
	}
}

// httpError renders echo's own errors (unknown route, bad method, bind
// failures) in the same shape as handler errors.
func (s *Server) httpError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		if werr := s.mapError(c, err); werr != nil {
			s.log.Error().Err(werr).Msg("write error response")
		}
		return
	}

	detail := http.StatusText(he.Code)
	switch he.Code {
	case http.StatusNotFound:
		detail = "Not found."
	case http.StatusMethodNotAllowed:
		detail = fmt.Sprintf("Method %q not allowed.", c.Request().Method)
	default:
		if msg, ok := he.Message.(string); ok && msg != "" {
			detail = msg
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	if werr := c.JSON(he.Code, DetailResponse{Detail: detail}); werr != nil {
		s.log.Error().Err(werr).Msg("write error response")
	}
}
