package server

import (
	"errors"
	"net/http"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"blog_backend/admin"
	"blog_backend/auth"
	"blog_backend/sitemap"
	"blog_backend/store"
)

// PageSize is the number of posts per list page.
const PageSize = 10

// Options are the HTTP-facing settings taken from config.
type Options struct {
	CORSAllowedOrigins []string
	MediaRoot          string
}

type Server struct {
	store   *store.Store
	gen     admin.Generator
	admin   *admin.PostAdmin
	issuer  *auth.Issuer
	sitemap *sitemap.Generator
	opts    Options
	log     *zerolog.Logger
}

func New(st *store.Store, gen admin.Generator, issuer *auth.Issuer, sm *sitemap.Generator, opts Options, logger *zerolog.Logger) (*Server, error) {
	if st == nil {
		return nil, errors.New("store required")
	}
	if gen == nil {
		return nil, errors.New("generator required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		store:   st,
		gen:     gen,
		admin:   admin.NewPostAdmin(gen, st, logger),
		issuer:  issuer,
		sitemap: sm,
		opts:    opts,
		log:     logger,
	}, nil
}

// Echo builds the HTTP handler with middleware and every route attached.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = s.httpError

	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || path.Ext(p) != "" || strings.HasPrefix(p, "/media/")
		},
	}))
	e.Use(RequestIDMiddleware())
	e.Use(LoggingMiddleware(s.log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.opts.CORSAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, headerRequestID},
	}))
	e.Use(s.Authenticate())

	s.Register(e)
	return e
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)
	e.GET("/sitemap.xml", s.SitemapXML)
	if s.opts.MediaRoot != "" {
		e.Static("/media", s.opts.MediaRoot)
	}

	api := e.Group("/api")
	api.Any("/ai/generate-post/", s.GeneratePost, postOnly, s.requireStaff)

	api.GET("/posts/", s.ListPosts)
	api.POST("/posts/", s.CreatePost, s.requireAuth)
	api.GET("/posts/:slug/", s.GetPost)
	api.PUT("/posts/:slug/", s.UpdatePost, s.requireAuth)
	api.PATCH("/posts/:slug/", s.UpdatePost, s.requireAuth)
	api.DELETE("/posts/:slug/", s.DeletePost, s.requireAuth)

	api.GET("/categories/", s.ListCategories)
	api.POST("/categories/", s.CreateCategory, s.requireAuth)
	api.GET("/categories/:id/", s.GetCategory)
	api.PUT("/categories/:id/", s.UpdateCategory, s.requireAuth)
	api.PATCH("/categories/:id/", s.UpdateCategory, s.requireAuth)
	api.DELETE("/categories/:id/", s.DeleteCategory, s.requireAuth)

	api.GET("/tags/", s.ListTags)
	api.POST("/tags/", s.CreateTag, s.requireAuth)
	api.GET("/tags/:slug/", s.GetTag)
	api.PUT("/tags/:slug/", s.UpdateTag, s.requireAuth)
	api.PATCH("/tags/:slug/", s.UpdateTag, s.requireAuth)
	api.DELETE("/tags/:slug/", s.DeleteTag, s.requireAuth)

	api.GET("/comments/", s.ListComments)
	api.POST("/comments/", s.CreateComment, s.requireAuth)
	api.GET("/comments/:id/", s.GetComment)
	api.PUT("/comments/:id/", s.UpdateComment, s.requireAuth)
	api.PATCH("/comments/:id/", s.UpdateComment, s.requireAuth)
	api.DELETE("/comments/:id/", s.DeleteComment, s.requireAuth)

	api.POST("/register/", s.SignUp)
	api.POST("/token/", s.ObtainToken)
	api.POST("/token/refresh/", s.RefreshToken)

	api.GET("/adsense-settings/", s.AdSenseSettings)

	adm := e.Group("/admin", s.requireStaff)
	adm.POST("/posts/", s.AdminCreatePost)
	adm.PUT("/posts/:slug/", s.AdminUpdatePost)
	adm.PUT("/adsense-settings/", s.UpdateAdSenseSettings)
}

func (s *Server) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// requestValidator adapts go-playground/validator to echo.Validator and
// reports json field names.
type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}
