package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/admin"
	"github.com/Zachkp/folio/internal/analytics"
)

const maxUploadSize = 10 << 20

// singletonPanel is the surface shared by every SingletonManager.
type singletonPanel interface {
	Info() admin.KindInfo
	Load(ctx context.Context) error
	View() admin.SingletonView
	Submit(ctx context.Context, form admin.Form, upload *admin.Upload) error
}

func (s *Server) adminRoutes(r *gin.Engine) {
	auth := s.opts.Auth

	r.GET("/admin/login", func(c *gin.Context) {
		if auth.Authenticated(c) {
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if auth.Check(c.PostForm("username"), c.PostForm("password")) {
			auth.login(c)
			s.logger.Printf("Admin login successful from %s", s.clientHash(c))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		s.logger.Printf("Failed admin login attempt from %s", s.clientHash(c))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		auth.logout(c)
		s.logger.Printf("Admin logout from %s", s.clientHash(c))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	g := r.Group("/admin")
	g.Use(auth.Middleware())

	g.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/admin/dashboard") })
	g.GET("/dashboard", s.dashboard)
	g.GET("/visitors", s.visitors)
	g.POST("/privacy/cleanup", s.privacyCleanup)
	g.GET("/export", s.export)

	content := g.Group("/content/:kind")
	content.Use(s.panelMiddleware)
	content.GET("", s.panelPage)
	content.GET("/rows", s.panelRows)
	content.POST("/refresh", s.panelRefresh)
	content.POST("/new", s.panelCreate)
	content.POST("/cancel", s.panelCancel)
	content.POST("/submit", s.panelSubmit)
	content.POST("/:id/edit", s.panelEdit)
	content.GET("/:id/delete", s.panelConfirmDelete)
	content.POST("/:id/delete", s.panelDelete)

	if s.opts.Profile != nil {
		s.singletonRoutes(g, "/profile", s.opts.Profile)
	}
	if s.opts.Contact != nil {
		s.singletonRoutes(g, "/contact", s.opts.Contact)
	}
}

func (s *Server) clientHash(c *gin.Context) string {
	if s.opts.Tracker == nil {
		return "unknown"
	}
	return s.opts.Tracker.HashIP(c.ClientIP())
}

// adminStatus maps a manager error to the status of the re-rendered page.
func adminStatus(err error) int {
	var (
		verr *admin.ValidationError
		uerr *admin.UploadError
		serr *admin.SubmitError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, admin.ErrBusy), errors.Is(err, admin.ErrNotEditing), errors.Is(err, admin.ErrFormOpen):
		return http.StatusConflict
	case errors.Is(err, admin.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, admin.ErrUnknownItem):
		return http.StatusNotFound
	case errors.As(err, &uerr), errors.As(err, &serr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	content, err := analytics.Content(ctx, s.opts.Repos)
	if err != nil {
		s.logger.Printf("Error loading content stats: %v", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
			"error": "Failed to load content",
		})
		return
	}

	var visitors *analytics.VisitorStats
	if s.opts.Tracker != nil {
		visitors, err = s.opts.Tracker.Stats(ctx)
		if err != nil {
			s.logger.Printf("Error loading admin stats: %v", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
	}

	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
		"site":     s.opts.Site,
		"content":  content,
		"stats":    visitors,
		"panels":   s.panelInfos(),
		"live":     s.opts.Hub != nil,
		"tracking": s.opts.Tracker != nil,
	})
}

func (s *Server) visitors(c *gin.Context) {
	if s.opts.Tracker == nil {
		c.HTML(http.StatusNotFound, "admin-error.html", gin.H{"error": "Visitor tracking is disabled"})
		return
	}
	visits, err := s.opts.Tracker.Recent(c.Request.Context(), 200)
	if err != nil {
		s.logger.Printf("Error loading visitors: %v", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
			"error": "Failed to load visitors",
		})
		return
	}
	c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
		"site":     s.opts.Site,
		"visitors": visits,
		"panels":   s.panelInfos(),
	})
}

func (s *Server) privacyCleanup(c *gin.Context) {
	if s.opts.Tracker == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "visitor tracking is disabled"})
		return
	}
	n, err := s.opts.Tracker.Cleanup(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
}

// export downloads every collection as JSON.
func (s *Server) export(c *gin.Context) {
	snap, err := s.opts.Repos.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=portfolio-export.json")
	s.logger.Printf("Content exported by %s", s.clientHash(c))
	c.JSON(http.StatusOK, snap)
}

func (s *Server) panelInfos() []admin.KindInfo {
	infos := make([]admin.KindInfo, 0, len(s.opts.Panels))
	for _, p := range s.opts.Panels {
		infos = append(infos, p.Info())
	}
	return infos
}

const panelKey = "panel"

func (s *Server) panelMiddleware(c *gin.Context) {
	p, ok := s.panels[c.Param("kind")]
	if !ok {
		c.HTML(http.StatusNotFound, "admin-error.html", gin.H{"error": "Unknown content type"})
		c.Abort()
		return
	}
	c.Set(panelKey, p)
	c.Next()
}

func panelOf(c *gin.Context) admin.Panel {
	return c.MustGet(panelKey).(admin.Panel)
}

func panelURL(p admin.Panel) string {
	return "/admin/content/" + p.Info().Name
}

func (s *Server) renderPanel(c *gin.Context, p admin.Panel, status int) {
	c.HTML(status, "admin-panel.html", gin.H{
		"site":   s.opts.Site,
		"view":   p.View(),
		"base":   panelURL(p),
		"panels": s.panelInfos(),
		"live":   s.opts.Hub != nil,
	})
}

// respond re-renders the panel after a failed transition, or redirects back
// to it after a successful one. A request that lands while another write is
// in flight is also redirected, so the page shows that write's outcome.
func (s *Server) respond(c *gin.Context, p admin.Panel, err error) {
	if err != nil && !errors.Is(err, admin.ErrBusy) {
		s.renderPanel(c, p, adminStatus(err))
		return
	}
	c.Redirect(http.StatusSeeOther, panelURL(p))
}

func (s *Server) panelPage(c *gin.Context) {
	p := panelOf(c)
	status := http.StatusOK
	if !p.View().FormOpen() {
		if err := p.Load(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
		}
	}
	s.renderPanel(c, p, status)
}

func (s *Server) panelRows(c *gin.Context) {
	p := panelOf(c)
	c.HTML(http.StatusOK, "admin-rows.html", gin.H{
		"view": p.View(),
		"base": panelURL(p),
	})
}

func (s *Server) panelRefresh(c *gin.Context) {
	p := panelOf(c)
	if err := p.Load(c.Request.Context()); err != nil {
		s.renderPanel(c, p, http.StatusServiceUnavailable)
		return
	}
	c.Redirect(http.StatusSeeOther, panelURL(p))
}

func (s *Server) panelCreate(c *gin.Context) {
	p := panelOf(c)
	s.respond(c, p, p.Create())
}

func (s *Server) panelEdit(c *gin.Context) {
	p := panelOf(c)
	s.respond(c, p, p.Edit(c.Param("id")))
}

func (s *Server) panelCancel(c *gin.Context) {
	p := panelOf(c)
	s.respond(c, p, p.Cancel())
}

func (s *Server) panelSubmit(c *gin.Context) {
	p := panelOf(c)
	form := formFromRequest(c, p.Info().Fields)
	upload, err := readUpload(c)
	if err != nil {
		c.HTML(http.StatusRequestEntityTooLarge, "admin-error.html", gin.H{"error": err.Error()})
		return
	}
	err = p.Submit(c.Request.Context(), form, upload)
	if err != nil {
		s.logger.Printf("%s submit failed: %v", p.Info().Name, err)
	}
	s.respond(c, p, err)
}

func (s *Server) panelConfirmDelete(c *gin.Context) {
	p := panelOf(c)
	view := p.View()
	id := c.Param("id")
	for _, row := range view.Rows {
		if row.ID == id {
			c.HTML(http.StatusOK, "admin-confirm.html", gin.H{
				"site": s.opts.Site,
				"kind": view.Kind,
				"row":  row,
				"base": panelURL(p),
			})
			return
		}
	}
	s.renderPanel(c, p, http.StatusNotFound)
}

func (s *Server) panelDelete(c *gin.Context) {
	p := panelOf(c)
	confirmed := c.PostForm("confirm") == "yes"
	err := p.Delete(c.Request.Context(), c.Param("id"), confirmed)
	if err != nil {
		s.logger.Printf("%s delete failed: %v", p.Info().Name, err)
	}
	s.respond(c, p, err)
}

func (s *Server) singletonRoutes(g *gin.RouterGroup, path string, p singletonPanel) {
	render := func(c *gin.Context, status int) {
		c.HTML(status, "admin-singleton.html", gin.H{
			"site":   s.opts.Site,
			"view":   p.View(),
			"action": "/admin" + path,
			"panels": s.panelInfos(),
		})
	}

	g.GET(path, func(c *gin.Context) {
		status := http.StatusOK
		if err := p.Load(c.Request.Context()); err != nil && !errors.Is(err, admin.ErrBusy) {
			status = http.StatusServiceUnavailable
		}
		render(c, status)
	})

	g.POST(path, func(c *gin.Context) {
		form := formFromRequest(c, p.Info().Fields)
		upload, err := readUpload(c)
		if err != nil {
			c.HTML(http.StatusRequestEntityTooLarge, "admin-error.html", gin.H{"error": err.Error()})
			return
		}
		err = p.Submit(c.Request.Context(), form, upload)
		if err != nil {
			s.logger.Printf("%s submit failed: %v", p.Info().Name, err)
		}
		if errors.Is(err, admin.ErrBusy) {
			c.Redirect(http.StatusSeeOther, "/admin"+path)
			return
		}
		render(c, adminStatus(err))
	})
}

// formFromRequest collects the posted text of every field. Unchecked
// checkboxes are absent from the request and read as "".
func formFromRequest(c *gin.Context, fields []admin.Field) admin.Form {
	form := make(admin.Form, len(fields))
	for _, f := range fields {
		if f.Type == admin.File {
			continue
		}
		form[f.Name] = c.PostForm(f.Name)
	}
	return form
}

// readUpload returns the optional "image" file of a multipart form.
func readUpload(c *gin.Context) (*admin.Upload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if fh.Size == 0 {
		return nil, nil
	}
	if fh.Size > maxUploadSize {
		return nil, fmt.Errorf("image is larger than %d MB", maxUploadSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &admin.Upload{Name: fh.Filename, Data: data}, nil
}
