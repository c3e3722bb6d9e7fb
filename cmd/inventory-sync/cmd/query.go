package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/inventory/query"
)

var (
	queryProvider string
	querySearch   string
	queryFilters  []string
	querySort     string
	queryDesc     bool
	queryGroupBy  string
	queryCollapse []string
	queryVM       string
	queryHosts    bool
	queryTable    bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search, filter, sort and group the VMs of a provider",
	Example: `  inventory-sync query -p vmware --search prod --filter power_state=POWERED_OFF --group-by cluster
  inventory-sync query -p hyperv --filter "name*=web-*" --sort cpu_usage_pct --desc
  inventory-sync query -p cedia --vm vm-42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := common.SetupSignalHandler(context.Background())

		inv, c, closeInventory, err := createController(ctx, queryProvider)
		if err != nil {
			return err
		}

		defer func() {
			_ = closeInventory(context.Background())
		}()

		switch {
		case queryVM != "":
			loader, err := inv.DetailLoader(c.Provider())
			if err != nil {
				return err
			}

			vm, err := loader.Load(ctx, queryVM)
			if err != nil {
				return fmt.Errorf("%s: %w", common.UserMessage(err), err)
			}

			return printJSON(cmd.OutOrStdout(), vm)
		case queryHosts:
			adapter, err := inv.Adapters.Get(c.Provider())
			if err != nil {
				return err
			}

			hosts, err := adapter.FetchHosts(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", common.UserMessage(err), err)
			}

			return printJSON(cmd.OutOrStdout(), hosts)
		}

		// restores the filters of the previous query
		_, err = c.Load(ctx)
		if err != nil && len(c.View().VMs) == 0 {
			return fmt.Errorf("%s: %w", common.UserMessage(err), err)
		}

		if queryFlagsSet(cmd) {
			state, err := buildState(c.QueryState())
			if err != nil {
				return err
			}

			err = c.SetState(ctx, state)
			if err != nil {
				return err
			}
		}

		ret := c.Query()

		if queryTable {
			return printTable(cmd.OutOrStdout(), ret)
		}

		return printJSON(cmd.OutOrStdout(), ret)
	},
}

func queryFlagsSet(cmd *cobra.Command) bool {
	for _, name := range []string{"search", "filter", "sort", "desc", "group-by", "collapse"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}

	return false
}

// buildState replaces the persisted state with the flags.
func buildState(previous query.State) (query.State, error) {
	ret := query.NewState()
	ret.Search = querySearch
	ret.GroupBy = query.Field(queryGroupBy)

	for _, raw := range queryFilters {
		f, err := parseFilter(raw)
		if err != nil {
			return query.State{}, err
		}

		ret = ret.WithFilter(f)
	}

	if querySort != "" {
		ret.Sort = query.Sort{Field: query.Field(querySort), Desc: queryDesc}
	}

	for _, key := range queryCollapse {
		ret = ret.ToggleCollapsed(key)
	}

	// keep the collapsed groups when the grouping did not change
	if len(queryCollapse) == 0 && ret.GroupBy == previous.GroupBy {
		ret.Collapsed = previous.Collapsed
	}

	return ret, ret.Validate()
}

// parseFilter reads field=value (exact), field~=value (contains) and field*=pattern (wildcard).
func parseFilter(raw string) (query.Filter, error) {
	for _, op := range []struct {
		sep  string
		mode query.Mode
	}{
		{"~=", query.ModeContains},
		{"*=", query.ModeWildcard},
		{"=", query.ModeExact},
	} {
		field, value, ok := strings.Cut(raw, op.sep)
		if ok && field != "" {
			return query.Filter{Field: query.Field(field), Mode: op.mode, Value: value}, nil
		}
	}

	return query.Filter{}, fmt.Errorf("invalid filter %q, expected field=value, field~=value or field*=pattern", raw)
}

func printTable(w io.Writer, ret query.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	printRows := func(vms []entity.VM) {
		for _, vm := range vms {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				vm.Name, vm.PowerState, vm.Environment, vm.Host, vm.Cluster,
				optional(vm.CPUCount, strconv.Itoa),
				optional(vm.MemorySizeMiB, func(v int64) string { return humanize.IBytes(uint64(v) * humanize.MiByte) }),
				strings.Join(vm.IPAddresses, ","),
			)
		}
	}

	fmt.Fprintln(tw, "NAME\tSTATE\tENVIRONMENT\tHOST\tCLUSTER\tCPU\tMEMORY\tIP")

	if ret.Groups == nil {
		printRows(ret.VMs)
	}

	for _, group := range ret.Groups {
		fmt.Fprintf(tw, "# %s (%d)\n", group.Label, len(group.VMs))

		if !group.Collapsed {
			printRows(group.VMs)
		}
	}

	fmt.Fprintf(tw, "%d/%d VMs\n", ret.Matched, ret.Total)

	return tw.Flush()
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}

	return format(*v)
}

func init() {
	queryCmd.Flags().StringVarP(&queryProvider, "provider", "p", string(entity.ProviderVMware), "provider to query")
	queryCmd.Flags().StringVarP(&querySearch, "search", "s", "", "text searched in name, OS, host, cluster and environment")
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil, "field filter, repeatable")
	queryCmd.Flags().StringVar(&querySort, "sort", "", "field to sort by")
	queryCmd.Flags().BoolVar(&queryDesc, "desc", false, "sort descending")
	queryCmd.Flags().StringVarP(&queryGroupBy, "group-by", "g", "", "field to group by")
	queryCmd.Flags().StringSliceVar(&queryCollapse, "collapse", nil, "groups to collapse")
	queryCmd.Flags().StringVar(&queryVM, "vm", "", "show the details and metrics of one VM")
	queryCmd.Flags().BoolVar(&queryHosts, "hosts", false, "list the hosts of the provider")
	queryCmd.Flags().BoolVar(&queryTable, "table", false, "print a table instead of JSON")

	rootCmd.AddCommand(queryCmd)
}
