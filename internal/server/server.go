// Package server wires the public site, the JSON read API and the admin
// panel into one gin engine.
package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/admin"
	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/live"
	"github.com/Zachkp/folio/internal/markdown"
	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
)

//go:embed templates/*.html static/*
var assetsFS embed.FS

// Options holds everything the handlers depend on. Tracker and Hub may be
// nil to disable visitor tracking and live updates.
type Options struct {
	Site       SiteInfo
	PageSize   int
	UploadsDir string
	UploadsURL string
	CORSOrigin []string

	Repos    *repository.Repositories
	Panels   []admin.Panel
	Profile  *admin.SingletonManager[model.ProfileData]
	Contact  *admin.SingletonManager[model.ContactInfo]
	Auth     *Auth
	Mailer   *contact.Mailer
	Markdown *markdown.Renderer
	Tracker  *analytics.Tracker
	Hub      *live.Hub

	LogWriter io.Writer
	Logger    *log.Logger
}

type SiteInfo struct {
	Title  string
	Author string
}

type Server struct {
	opts   Options
	panels map[string]admin.Panel
	engine *gin.Engine
	logger *log.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Repos == nil || opts.Auth == nil {
		return nil, errors.New("server: Repos and Auth are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.LogWriter == nil {
		opts.LogWriter = gin.DefaultWriter
	}
	if opts.Markdown == nil {
		opts.Markdown = markdown.New()
	}
	if opts.PageSize < 1 {
		opts.PageSize = 6
	}

	s := &Server{
		opts:   opts,
		panels: make(map[string]admin.Panel, len(opts.Panels)),
		logger: opts.Logger,
	}
	for _, p := range opts.Panels {
		s.panels[p.Info().Name] = p
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(assetsFS, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.LoggerWithWriter(opts.LogWriter), gin.RecoveryWithWriter(opts.LogWriter))
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))
	if opts.UploadsDir != "" && strings.HasPrefix(opts.UploadsURL, "/") {
		r.Static(opts.UploadsURL, opts.UploadsDir)
	}
	if opts.Tracker != nil {
		r.Use(opts.Tracker.Middleware())
	}

	s.engine = r
	s.publicRoutes(r)
	s.apiRoutes(r)
	s.adminRoutes(r)
	if opts.Hub != nil {
		r.GET("/live", gin.WrapH(opts.Hub))
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// HTTPServer returns an http.Server for addr with timeouts set.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) apiRoutes(r *gin.Engine) {
	origins := s.opts.CORSOrigin
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	api := r.Group("/api")
	api.Use(cors.New(cfg))
	api.GET("/:collection", s.apiCollection)
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"formatDate": func(s string) string {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("Jan 2, 2006")
			}
		}
		return s
	},
	"categoryLabel": model.CategoryLabel,
	"isFetchError":  repository.IsFetchError,
	"field": func(f admin.Form, name string) string {
		return f[name]
	},
	"checked": func(f admin.Form, name string) bool {
		return f.Checked(name)
	},
	"add": func(a, b int) int { return a + b },
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[key] = kv[i+1]
		}
		return m, nil
	},
	"year": func() int { return time.Now().Year() },
}
