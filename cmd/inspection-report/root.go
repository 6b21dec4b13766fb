package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
	"github.com/joseph-ayodele/inspection-reports/internal/export"
	"github.com/joseph-ayodele/inspection-reports/internal/layout"
	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

// app carries what every subcommand needs once flags and config are read.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *common.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: common.NewViper()}

	root := &cobra.Command{
		Use:   "inspection-report",
		Short: "Render field inspection reports without the web wizard",
		Long: `inspection-report works on report documents in JSON form, the same shape
the gRPC RenderReport call accepts:

  {"header": {"site_id": "P-101", "date": "2024-06-01"},
   "items": [{"type": "Casing", "depth": "12.5", "status": "Good",
              "photos": [{"data": "<base64>", "label": "north face"}]}],
   "closing_notes": "..."}

Examples:
  inspection-report render --in report.json --out report.pdf
  inspection-report render --in report.json --format xlsx
  inspection-report message --in report.json --to ops@example.com
  inspection-report sites --file pozos.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("lang", "", "report language (en or es)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("report.lang", root.PersistentFlags().Lookup("lang"))
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRenderCmd(a), newMessageCmd(a), newSitesCmd(a))
	return root
}

func (a *app) init(stderr io.Writer) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}
	a.cfg = common.FromViper(a.v)
	a.logger = common.NewLogger(a.cfg.Log, stderr)
	return nil
}

func (a *app) exporter() *export.Service {
	lc := layout.DefaultConfig()
	lc.Labels = layout.LabelsFor(a.cfg.Report.Lang)
	return export.NewService(layout.NewEngine(lc, a.logger), export.Config{
		From:       a.cfg.Export.From,
		Recipients: a.cfg.Export.Recipients,
		Subject:    a.cfg.Export.Subject,
	}, a.logger)
}

// readReport decodes a report document from path, or stdin for "-". When
// sitesFile is set the site id must be one of its entries.
func (a *app) readReport(in io.Reader, path, sitesFile string) (*entity.Report, error) {
	if path == "" {
		return nil, errors.New("--in is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var known []string
	if sitesFile != "" {
		catalog, err := sites.Load(sitesFile, a.cfg.Sites.Column, a.logger)
		if err != nil {
			return nil, err
		}
		known = catalog.IDs()
	}
	return entity.DecodeReport(data, known)
}

// writeOutput writes data to path, or to w for "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
