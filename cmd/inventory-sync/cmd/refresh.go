package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/factory"
	"github.com/openshift-assisted/inventory-sync/internal/inventory"
)

var (
	refreshProvider string
	refreshForce    bool
)

type refreshResult struct {
	Job  entity.RefreshJob `json:"job"`
	VMs  int               `json:"vms"`
	Note string            `json:"note,omitempty"`
}

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the back end for a new snapshot of a provider and wait for it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := common.SetupSignalHandler(context.Background())

		_, c, closeInventory, err := createController(ctx, refreshProvider)
		if err != nil {
			return err
		}

		defer func() {
			_ = closeInventory(context.Background())
		}()

		job, err := c.Refresh(ctx, refreshForce)
		if err != nil {
			return fmt.Errorf("%s: %w", common.UserMessage(err), err)
		}

		ret := refreshResult{
			Job: job,
			VMs: len(c.View().VMs),
		}

		if job.Message == entity.JobMessageCooldown {
			ret.Note = common.UserMessage(common.CooldownRejected{Until: job.CooldownUntil})
		}

		return printJSON(cmd.OutOrStdout(), ret)
	},
}

// createController returns the controller of one enabled provider.
func createController(ctx context.Context, name string) (factory.Inventory, *inventory.Controller, common.CloseFunc, error) {
	p := entity.Provider(name)
	if !p.Valid() {
		return factory.Inventory{}, nil, nil, fmt.Errorf("unknown provider %q, expected one of %v", name, entity.Providers)
	}

	inv, closeInventory, err := factory.CreateInventory(ctx, conf, prometheus.NewRegistry(), logNotice)
	if err != nil {
		return factory.Inventory{}, nil, nil, fmt.Errorf("failed to create inventory: %w", err)
	}

	c := inv.Aggregate.Controller(p)
	if c == nil {
		_ = closeInventory(ctx)

		return factory.Inventory{}, nil, nil, fmt.Errorf("provider %q is not enabled", p)
	}

	return inv, c, closeInventory, nil
}

func init() {
	refreshCmd.Flags().StringVarP(&refreshProvider, "provider", "p", string(entity.ProviderVMware), "provider to refresh")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "request a full refresh")

	rootCmd.AddCommand(refreshCmd)
}
