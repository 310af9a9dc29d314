package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"blog_backend/auth"
)

const (
	headerRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
	ctxPrincipal    = "principal"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set(ctxRequestID, id)
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields.
func LoggingMiddleware(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// 让错误处理器先写状态码
				c.Error(err)
			}
			logger.Info().
				Str("request_id", requestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Msg("request")
			return nil
		}
	}
}

func requestID(c echo.Context) string {
	id, _ := c.Get(ctxRequestID).(string)
	return id
}

// Authenticate attaches the bearer token's principal to the context.
// Requests without a token continue anonymously.
func (s *Server) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Authorization header must contain two space-delimited values"})
			}
			p, err := s.issuer.Parse(strings.TrimSpace(token), auth.TokenAccess)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					s.log.Error().Err(err).Str("request_id", requestID(c)).Msg("token parse failed")
				}
				return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Given token not valid for any token type", Code: "token_not_valid"})
			}
			c.Set(ctxPrincipal, p)
			return next(c)
		}
	}
}

func principal(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(auth.Principal)
	return p, ok
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := principal(c); !ok {
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Authentication credentials were not provided."})
		}
		return next(c)
	}
}

func (s *Server) requireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := principal(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Authentication credentials were not provided."})
		}
		if !p.Staff {
			return c.JSON(http.StatusForbidden, DetailResponse{Detail: "You do not have permission to perform this action."})
		}
		return next(c)
	}
}

// postOnly answers anything but POST before authentication runs.
func postOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method != http.MethodPost {
			c.Response().Header().Set("Allow", http.MethodPost)
			return c.JSON(http.StatusMethodNotAllowed, ErrorResponse{
				Error: "Method not allowed.",
				Hint:  "Send a POST request with a JSON body.",
			})
		}
		return next(c)
	}
}
