package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nimsforest/livetable"
)

var (
	configPath string
	nodes      int
	sidecarURL string
	addr       string
	terminal   bool
	cfg        *livetable.Config
)

var rootCmd = &cobra.Command{
	Use:   "livetable",
	Short: "Live status table for testbed nodes",
	Long: `livetable follows the testbed sidecar and keeps a status table of
every node up to date, in browsers and on the terminal.

Configuration is read from --config or $LIVETABLE_CONFIG; flags override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		// glog refuses to log before the go flag set is parsed
		flag.CommandLine.Parse(nil)

		var err error
		if configPath != "" {
			cfg, err = livetable.LoadFile(configPath)
		} else {
			cfg, err = livetable.Load()
		}
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags())
		return cfg.Validate()
	},
}

// Execute runs the root command
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().IntVar(&nodes, "nodes", livetable.DefaultNodes, "number of testbed nodes")
	rootCmd.PersistentFlags().StringVar(&sidecarURL, "sidecar", "", "sidecar websocket URL")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "web listen address")
	rootCmd.PersistentFlags().BoolVar(&terminal, "terminal", false, "mirror the table on stdout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(flags *pflag.FlagSet) {
	if flags.Changed("nodes") {
		cfg.Nodes = nodes
	}
	if flags.Changed("sidecar") {
		cfg.Sidecar.URL = sidecarURL
	}
	if flags.Changed("addr") {
		cfg.Web.Addr = addr
	}
	if flags.Changed("terminal") {
		cfg.Terminal = terminal
	}
}

func newView() livetable.View {
	return livetable.NewTestbedView(livetable.TestbedOptions{Badges: cfg.Badges})
}
