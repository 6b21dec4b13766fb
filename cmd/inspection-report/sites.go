package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

func newSitesCmd(a *app) *cobra.Command {
	var file, column string

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List the site identifiers a site file provides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = a.cfg.Sites.File
			}
			if column == "" {
				column = a.cfg.Sites.Column
			}
			catalog, err := sites.Load(file, column, a.logger)
			if err != nil {
				return err
			}
			for _, id := range catalog.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "xlsx, csv or yaml site list (default sites.file)")
	cmd.Flags().StringVar(&column, "column", "", "header of the id column (default sites.column)")
	return cmd
}
