package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/inspection-reports/internal/export"
)

func newRenderCmd(a *app) *cobra.Command {
	var in, out, sitesFile, format string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a report document to PDF (or an XLSX item list)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.readReport(cmd.InOrStdin(), in, sitesFile)
			if err != nil {
				return err
			}

			svc := a.exporter()
			var data []byte
			switch format {
			case "pdf":
				data, err = svc.RenderPDF(cmd.Context(), report)
			case "xlsx":
				data, err = svc.ExportItemsXLSX(cmd.Context(), report)
			default:
				return fmt.Errorf("unknown format %q (want pdf or xlsx)", format)
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = export.Filename(report, format)
			}
			if err := writeOutput(cmd.OutOrStdout(), out, data); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(data))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "report JSON file, or - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "output file, or - for stdout (default inspection-<site>-<date>.<format>)")
	cmd.Flags().StringVar(&sitesFile, "sites", "", "site list to check the report's site against")
	cmd.Flags().StringVar(&format, "format", "pdf", "pdf or xlsx")
	return cmd
}
