package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/pipeline"
	"github.com/severn-soft/pricegrab/internal/report"
	"github.com/severn-soft/pricegrab/internal/resilience"
)

var sabyCmd = &cobra.Command{
	Use:   "saby",
	Short: "Extract the saby catalog",
	Long:  "Renders every region's tariff page, extracts prices, and writes the saby workbook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		regions, err := config.LoadRegions(cfg.Saby.RegionsFile)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		session, err := initSession()
		if err != nil {
			return err
		}
		defer session.Close() //nolint:errcheck

		var deliver pipeline.Deliverer
		if n := initNotifier(); n != nil {
			deliver = n
		}

		p := &pipeline.Saby{
			Session:         session,
			Sink:            report.NewSink(cfg.Output.Dir, model.CatalogSaby),
			Ledger:          st,
			Deliver:         deliver,
			Regions:         regions,
			URLTemplate:     cfg.Saby.TariffURLTemplate,
			CheckpointEvery: cfg.Pipeline.CheckpointEvery,
			Limiter:         navLimiter(),
			Progress: func(done, total int, region config.Region) {
				zap.L().Info("progress",
					zap.Int("done", done), zap.Int("total", total),
					zap.String("region", region.Code))
			},
			Retry: retryConfig("saby"),
			Breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
				FailureThreshold: 10,
				ResetTimeout:     5 * time.Minute,
			}),
		}

		res, err := p.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("saby batch finished",
			zap.Int("regions", res.Done),
			zap.Int("failed", res.Failed),
			zap.Bool("cancelled", res.Cancelled),
			zap.String("output", res.OutputPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sabyCmd)
}
