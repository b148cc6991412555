package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nimsforest/livetable"
)

var (
	replayMode   string
	replayFollow bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Replay recorded batches and print the resulting table",
	Long: `replay reads one batch per line from FILE ("-" for stdin) and feeds
them through the table engine. A line is either a JSON array of snapshots
or a sidecar frame {"category": ..., "action": "info", "message": ...}.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := livetable.ParseViewMode(replayMode)
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open replay: %w", err)
			}
			defer f.Close()
			in = f
		}
		return replay(in, cmd.OutOrStdout(), mode)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayMode, "mode", string(livetable.ModeAll), "view mode of the printed table (all or worth)")
	replayCmd.Flags().BoolVar(&replayFollow, "follow", false, "print the table after every batch")
}

func replay(in io.Reader, out io.Writer, mode livetable.ViewMode) error {
	registry, err := livetable.NewRegistry(cfg.Nodes, newView())
	if err != nil {
		return err
	}
	term := livetable.NewTerminalTarget(out)
	registry.Render()

	var lines, dispatched, unknown, failed int
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++
		batch, err := decodeLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lines, err)
		}
		if batch == nil {
			continue
		}
		report := registry.Dispatch(batch)
		dispatched++
		unknown += len(report.Unknown)
		failed += len(report.Failed)
		if replayFollow && !report.Patch.Empty() {
			fmt.Fprint(out, term.Render(livetable.NewFrame(registry, report.Patch)))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read replay: %w", err)
	}

	patch := registry.SetViewMode(mode)
	fmt.Fprint(out, term.Render(livetable.NewFrame(registry, patch)))
	fmt.Fprintf(out, "%d batches, %d unknown snapshots, %d failed nodes\n", dispatched, unknown, failed)
	return nil
}

func decodeLine(line []byte) (livetable.Batch, error) {
	if line[0] != '{' {
		return livetable.DecodeBatch(line)
	}
	category, batch, err := livetable.DecodeSidecarMessage(line)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cfg.Sidecar.Categories, category) {
		return nil, nil
	}
	return batch, nil
}
