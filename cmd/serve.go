package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/admin"
	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/assets"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/importer"
	"github.com/Zachkp/folio/internal/live"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/markdown"
	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/server"
)

var (
	servePort  string
	watchPosts string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Starts the public site, the JSON read API and the admin panel.

With --watch-posts, markdown files in the given directory are imported as
blog posts on start and re-imported whenever they change.`,
	RunE: runServe,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides config)")
		c.Flags().StringVar(&watchPosts, "watch-posts", "", "directory of markdown posts to import and watch")
	}
	rootCmd.AddCommand(serveCmd)
}

// imageStore picks Cloudinary when it is fully configured, otherwise the
// local uploads directory.
func imageStore(cfg *config.Config, folder string) assets.Store {
	if cfg.Cloudinary.Configured() {
		return assets.NewCloudinary(assets.CloudinaryConfig{
			CloudName:    cfg.Cloudinary.CloudName,
			UploadPreset: cfg.Cloudinary.UploadPreset,
			APIKey:       cfg.Cloudinary.APIKey,
			APISecret:    cfg.Cloudinary.APISecret,
			Folder:       cfg.Cloudinary.Folder + "/" + folder,
			BaseURL:      cfg.Cloudinary.BaseURL,
		})
	}
	return assets.NewBucket(cfg.Uploads.Dir, cfg.Uploads.URL, folder)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if servePort != "" {
		cfg.Port = servePort
	}
	switch cfg.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		log.Printf("Unknown mode %q, using %s", cfg.Mode, gin.Mode())
	}

	st, repos, err := openRepositories()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminLog := logging.New(logWriter, "admin")
	panels := []admin.Panel{
		admin.NewManager(admin.ProjectKind(), repos.Projects, imageStore(cfg, "projects"), adminLog),
		// Post images always live with the site, as the markdown refers to them.
		admin.NewManager(admin.PostKind(cfg.Site.Author, time.Now), repos.Posts,
			assets.NewBucket(cfg.Uploads.Dir, cfg.Uploads.URL, "posts"), adminLog),
		admin.NewManager(admin.ExperienceKind(), repos.Experiences, nil, adminLog),
		admin.NewManager(admin.SkillKind(), repos.Skills, nil, adminLog),
	}
	for _, p := range panels {
		if err := p.Load(ctx); err != nil {
			log.Printf("Initial load of %s failed: %v", p.Info().Name, err)
		}
		defer p.Watch()()
	}
	profile := admin.NewSingletonManager(admin.ProfileKind(), repos.Profile, imageStore(cfg, "profile"),
		func() model.ProfileData { return model.DefaultProfile }, adminLog)
	contactInfo := admin.NewSingletonManager(admin.ContactKind(), repos.Contact, nil, nil, adminLog)

	var tracker *analytics.Tracker
	if cfg.Analytics.Enabled {
		tracker, err = analytics.NewTracker(st.DB(), cfg.Analytics.RetentionMonths, logging.New(logWriter, "analytics"))
		if err != nil {
			return err
		}
		go tracker.RunCleanup(ctx, 24*time.Hour)
	}

	var hub *live.Hub
	if cfg.Live.Enabled {
		hub = live.NewHub(nil, logging.New(logWriter, "live"))
		hub.Watch(st,
			model.ProjectsCollection, model.PostsCollection, model.ExperiencesCollection,
			model.SkillsCollection, model.ContactCollection, model.ProfileCollection)
		hub.Start()
		defer hub.Stop()
	}

	if watchPosts != "" {
		im := importer.New(repos.Posts, cfg.Site.Author, logging.New(logWriter, "import"))
		n, err := im.ImportDir(ctx, watchPosts)
		if err != nil {
			return err
		}
		log.Printf("Imported %d posts from %s", n, watchPosts)
		go func() {
			if err := im.Watch(ctx, watchPosts); err != nil {
				log.Printf("Post watcher stopped: %v", err)
			}
		}()
	}

	username, password, hash := cfg.AdminCredentials()
	auth, err := server.NewAuth(username, password, hash, cfg.Mode == gin.ReleaseMode, logging.New(logWriter, "auth"))
	if err != nil {
		return err
	}

	mailer := contact.NewMailer(contact.Config{
		Host:    cfg.SMTP.Host,
		Port:    cfg.SMTP.Port,
		User:    cfg.SMTP.User,
		Pass:    cfg.SMTP.Pass,
		ToEmail: cfg.Contact.ToEmail,
	}, logging.New(logWriter, "contact"))
	if !mailer.Configured() {
		log.Println("WARNING: SMTP credentials not configured, the contact form will report an error")
	}

	srv, err := server.New(server.Options{
		Site:       server.SiteInfo{Title: cfg.Site.Title, Author: cfg.Site.Author},
		PageSize:   cfg.Site.PageSize,
		UploadsDir: cfg.Uploads.Dir,
		UploadsURL: cfg.Uploads.URL,
		CORSOrigin: cfg.CORS.AllowOrigins,
		Repos:      repos,
		Panels:     panels,
		Profile:    profile,
		Contact:    contactInfo,
		Auth:       auth,
		Mailer:     mailer,
		Markdown:   markdown.New(),
		Tracker:    tracker,
		Hub:        hub,
		LogWriter:  logWriter,
		Logger:     logging.New(logWriter, "http"),
	})
	if err != nil {
		return err
	}

	httpSrv := srv.HTTPServer(":" + cfg.Port)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return err
	}
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	return nil
}
