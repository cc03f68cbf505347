package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every collection to a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, repos, err := openRepositories()
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := repos.Snapshot(context.Background())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(exportCmd)
}
