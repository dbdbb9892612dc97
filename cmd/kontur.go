package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/convert"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/pipeline"
	"github.com/severn-soft/pricegrab/internal/report"
)

var (
	konturDocPath   string
	konturZeroPDF   string
	konturTaxRepPDF string
	konturStartPDF  string
)

var konturCmd = &cobra.Command{
	Use:   "kontur",
	Short: "Extract the kontur catalog",
	Long:  "Downloads the three batch price PDFs once, then visits every region's price page for its tariff document, extracts all sources, and writes the kontur workbook. Pass --doc and the --*-pdf flags to reuse already downloaded files.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		regions, err := config.LoadRegions(cfg.Kontur.RegionsFile)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := &pipeline.Kontur{
			Converter: convert.NewDocToDocx(cfg.Convert.SofficePath),
			Sink:      report.NewSink(cfg.Output.Dir, model.CatalogKontur),
			Ledger:    st,
			Regions:   regions,
			Sources: pipeline.KonturSources{
				DocPath:       konturDocPath,
				ZeroPDFPath:   konturZeroPDF,
				TaxRepPDFPath: konturTaxRepPDF,
				StartPDFPath:  konturStartPDF,
			},
			DocURLTemplate:    cfg.Kontur.DocURLTemplate,
			DocLinkText:       cfg.Kontur.DocLinkText,
			ZeroPDFLinkText:   cfg.Kontur.ZeroPDFLinkText,
			TaxRepPDFLinkText: cfg.Kontur.TaxRepPDFLinkText,
			StartPDFLinkText:  cfg.Kontur.StartPDFLinkText,
			DownloadDir:       cfg.Browser.DownloadDir,
			CheckpointEvery:   cfg.Pipeline.CheckpointEvery,
			Limiter:           navLimiter(),
			Progress: func(done, total int, region config.Region) {
				zap.L().Info("progress",
					zap.Int("done", done), zap.Int("total", total),
					zap.String("region", region.Code))
			},
		}

		if n := initNotifier(); n != nil {
			p.Deliver = n
		}

		// The browser is only needed when documents are not prefilled.
		if konturDocPath == "" || konturZeroPDF == "" || konturTaxRepPDF == "" || konturStartPDF == "" {
			session, err := initSession()
			if err != nil {
				return err
			}
			defer session.Close() //nolint:errcheck
			p.Session = session
		}

		res, err := p.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("kontur batch finished",
			zap.Int("regions", res.Done),
			zap.Int("failed", res.Failed),
			zap.Bool("cancelled", res.Cancelled),
			zap.String("output", res.OutputPath))
		return nil
	},
}

func init() {
	konturCmd.Flags().StringVar(&konturDocPath, "doc", "", "path to an already downloaded tariff document, reused for all regions")
	konturCmd.Flags().StringVar(&konturZeroPDF, "zero-pdf", "", "path to an already downloaded zero-report price PDF")
	konturCmd.Flags().StringVar(&konturTaxRepPDF, "tax-rep-pdf", "", "path to an already downloaded tax-representative price PDF")
	konturCmd.Flags().StringVar(&konturStartPDF, "start-pdf", "", "path to an already downloaded start-online price PDF")
	rootCmd.AddCommand(konturCmd)
}
