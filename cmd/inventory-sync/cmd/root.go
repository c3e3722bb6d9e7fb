package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"

	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/inventory"
	"github.com/openshift-assisted/inventory-sync/internal/log"
)

var (
	cfgFile string
	conf    *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "inventory-sync",
	Short:        "Synchronize and query the VM inventory of every virtualization back end",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		conf, err = config.Parse(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to parse config %s: %w", cfgFile, err)
		}

		// Init logger
		err = log.Init(conf.Logs)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		logger := log.Logger()

		// Dump generic information
		logger.V(1).Info("Starting inventory sync",
			"version", version.Info(),
			"buildContext", version.BuildContext(),
		)
		logger.V(1).Info("Using config", "config", fmt.Sprintf("%+v", conf))

		return nil
	},
}

// Execute adds all child commands to the root command. It is called once by main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}

	return nil
}

// logNotice sends the user notices to the log.
func logNotice(n inventory.Notice) {
	logger := log.Component("notice", string(n.Provider))

	switch n.Level {
	case inventory.LevelError:
		logger.Error(n.Err, n.Message)
	case inventory.LevelWarning:
		logger.Info(n.Message, "level", n.Level)
	default:
		logger.V(1).Info(n.Message)
	}
}
