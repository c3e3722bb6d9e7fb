package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/factory"
	"github.com/openshift-assisted/inventory-sync/internal/inventory"
	"github.com/openshift-assisted/inventory-sync/internal/log"
)

var (
	syncWatch  bool
	syncBypass bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load every enabled provider and print the overview",
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.Logger()

		// Set max procs based on cpu limits
		err := common.SetMaxProcs()
		if err != nil {
			logger.Error(err, "failed to set max procs")

			return
		}

		// Set max memory
		err = common.SetMemLimit()
		if err != nil {
			logger.Error(err, "failed to set mem limit")

			return
		}

		// Listen to sigterm and interrupt signals
		ctx := common.SetupSignalHandler(context.Background())

		registry, err := factory.CreateRegistry()
		if err != nil {
			logger.Error(err, "failed to create metrics registry")

			return
		}

		// Create inventory
		inv, closeInventory, err := factory.CreateInventory(ctx, conf, registry, logNotice)
		if err != nil {
			logger.Error(err, "failed to create inventory")

			return
		}

		closers := []common.CloseFunc{closeInventory}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.GracefulDuration)
			defer cancel()

			err := common.CloseAll(shutdownCtx, closers...)
			if err != nil {
				logger.Error(err, "failed to release resources")
			}
		}()

		views, err := load(ctx, inv.Aggregate)

		switch {
		case err == nil:
		case errors.As(err, &common.PartialFailure{}):
			logger.Info(common.UserMessage(err))
		default:
			logger.Error(err, "failed to load inventory")

			if !syncWatch {
				return
			}
		}

		err = printJSON(cmd.OutOrStdout(), inventory.NewRollup(views))
		if err != nil {
			logger.Error(err, "failed to print overview")
		}

		if !syncWatch {
			return
		}

		// Start metrics server
		closers = append(closers, startMetricsServer(registry))

		// Start auto refresh
		interval := conf.Refresh.AutoInterval
		if interval == 0 {
			interval = conf.Cache.TTL
		}

		for _, c := range inv.Aggregate.Controllers() {
			c.StartAutoRefresh(interval)
		}

		logger.Info("Watching inventory", "interval", interval.String())

		<-ctx.Done()

		logger.V(2).Info("Sync stopped")
	},
}

func load(ctx context.Context, aggregate *inventory.Aggregate) (map[entity.Provider]inventory.View, error) {
	if syncBypass {
		return aggregate.FetchAll(ctx, inventory.FetchOptions{BypassCache: true})
	}

	return aggregate.Load(ctx)
}

func startMetricsServer(registry *prometheus.Registry) common.CloseFunc {
	logger := log.Logger()
	server := factory.CreatePrometheusServer(conf.Metrics, registry)

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server stopped")
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep running, refresh on an interval and serve metrics")
	syncCmd.Flags().BoolVar(&syncBypass, "bypass-cache", false, "fetch from the back end even when the cache is fresh")

	rootCmd.AddCommand(syncCmd)
}
