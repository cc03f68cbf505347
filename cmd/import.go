package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/importer"
	"github.com/Zachkp/folio/internal/logging"
)

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import markdown files as blog posts",
	Long: `Imports every .md file in dir as a blog post. Title, date, author, tags
and image are read from the YAML frontmatter. A post's id is the file
name's slug, so re-importing a file updates its post.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, repos, err := openRepositories()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		im := importer.New(repos.Posts, appConfig.Site.Author, logging.New(logWriter, "import"))
		n, err := im.ImportDir(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d posts from %s\n", n, args[0])

		if !importWatch {
			return nil
		}
		return im.Watch(ctx, args[0])
	},
}

func init() {
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "keep running and re-import files when they change")
	rootCmd.AddCommand(importCmd)
}
