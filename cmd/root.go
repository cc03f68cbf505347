package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/repository"
	"github.com/Zachkp/folio/internal/store"
)

var (
	cfgFile   string
	appConfig *config.Config
	logWriter io.Writer = os.Stderr
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Portfolio site with a built-in content admin",
	Long: `folio serves a personal portfolio (projects, blog, experience, skills and
a contact form) together with an admin panel for editing that content.

Running folio without a subcommand starts the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initializeConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	appConfig = cfg
	logWriter, logCloser = logging.Setup(cfg.Log)
	return nil
}

// openRepositories opens the configured database. The caller closes the
// returned store.
func openRepositories() (*store.SQLite, *repository.Repositories, error) {
	st, err := store.Open(appConfig.Database.Path, logging.New(logWriter, "store"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return st, repository.NewRepositories(st), nil
}
