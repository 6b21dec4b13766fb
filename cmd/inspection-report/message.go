package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/inspection-reports/internal/export"
)

func newMessageCmd(a *app) *cobra.Command {
	var (
		in, out, sitesFile string
		msg                export.Message
	)

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Compose an email message (.eml) with the rendered report attached",
		Long: `Compose an RFC 5322 message with the report PDF attached. Recipients default
to export.recipients from the config. Nothing is sent; hand the file to your
mail client or MTA.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.readReport(cmd.InOrStdin(), in, sitesFile)
			if err != nil {
				return err
			}
			data, err := a.exporter().BuildMessage(cmd.Context(), report, msg)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.Filename(report, "eml")
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
	cmd.Flags().StringVar(&out, "out", "", "output file, or - for stdout")
	cmd.Flags().StringVar(&sitesFile, "sites", "", "site list to check the report's site against")
	cmd.Flags().StringSliceVar(&msg.To, "to", nil, "recipient address (repeatable or comma separated)")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&msg.Body, "body", "", "message text (default is an item summary)")
	return cmd
}
