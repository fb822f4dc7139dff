package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pkg.jsn.cam/synthgen/internal/config"
	"pkg.jsn.cam/synthgen/pkg/storage"
)

var errNeedsBbolt = errors.New("this command needs the bbolt store driver")

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store size and per-bucket key counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch cfg.Store.Driver {
		case config.DriverSQLite:
			info, err := os.Stat(cfg.Store.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Store:  %s (sqlite)\nSize:   %s\n", cfg.Store.Path, humanize.Bytes(uint64(info.Size())))
			return nil
		case config.DriverBbolt:
		default:
			return errNeedsBbolt
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.ledger.Close()

		stats, err := st.bolt.Stats()
		if err != nil {
			return err
		}
		printStats(out, stats)
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the bbolt store to reclaim free pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != config.DriverBbolt {
			return errNeedsBbolt
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.ledger.Close()

		before, err := st.bolt.Stats()
		if err != nil {
			return err
		}
		if err := st.bolt.Compact(); err != nil {
			return err
		}
		after, err := st.bolt.Stats()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Compacted %s: %s -> %s\n",
			after.Path,
			humanize.Bytes(uint64(before.SizeBytes)),
			humanize.Bytes(uint64(after.SizeBytes)))
		return nil
	},
}

func printStats(out io.Writer, stats storage.BboltStats) {
	fmt.Fprintf(out, "Store:      %s (bbolt)\n", stats.Path)
	fmt.Fprintf(out, "Size:       %s\n", humanize.Bytes(uint64(stats.SizeBytes)))
	fmt.Fprintf(out, "Free pages: %s\n", humanize.Comma(int64(stats.FreePages)))
	fmt.Fprintf(out, "Open tx:    %d\n", stats.OpenTx)
	fmt.Fprintln(out, "\nBuckets:")
	for _, name := range slices.Sorted(maps.Keys(stats.Keys)) {
		fmt.Fprintf(out, "  %-15s %s keys\n", name, humanize.Comma(int64(stats.Keys[name])))
	}
}
