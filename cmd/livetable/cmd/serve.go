package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/nimsforest/livetable"
)

var simulate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Follow the sidecar and serve the table to browsers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var channel livetable.PushChannel
		var local *livetable.LocalChannel
		if simulate {
			local = livetable.NewLocalChannel()
			channel = local
		} else {
			channel = livetable.NewSidecarChannel(cfg.Sidecar.URL, cfg.SidecarSettings())
		}

		table, err := livetable.New(
			livetable.WithNodes(cfg.Nodes),
			livetable.WithView(newView()),
			livetable.WithChannel(channel),
			livetable.WithCategories(cfg.Sidecar.Categories...),
		)
		if err != nil {
			return err
		}

		web, err := livetable.NewWebTarget(cfg.Web.Addr, livetable.WithTitle("testbed status"))
		if err != nil {
			return fmt.Errorf("create web target: %w", err)
		}
		table.AddTarget(web)
		if cfg.Terminal {
			table.AddTarget(livetable.NewTerminalTarget(cmd.OutOrStdout()))
		}

		if err := table.Start(ctx); err != nil {
			return err
		}
		glog.Infof("livetable: %d nodes, serving on %s", cfg.Nodes, cfg.Web.Addr)

		if local != nil {
			go runSimulation(ctx.Done(), local, cfg.Nodes, cfg.Sidecar.Categories[0])
		}

		<-ctx.Done()
		return table.Close()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&simulate, "simulate", false, "feed simulated snapshots instead of dialing the sidecar")
}

func runSimulation(done <-chan struct{}, channel *livetable.LocalChannel, nodes int, category string) {
	sim := livetable.NewSimulator(nodes, 0)
	if err := channel.Publish(category, sim.Full()); err != nil {
		glog.Warningf("simulate: %v", err)
	}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := channel.Publish(category, sim.Next()); err != nil {
				glog.Warningf("simulate: %v", err)
				return
			}
		}
	}
}
