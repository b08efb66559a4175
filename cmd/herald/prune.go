package main

import (
	"fmt"
	"time"

	"github.com/dogmatiq/herald"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "run one pruning pass",
	Long: `Remove stale server registrations, then remove the instructions that every
remaining server has already applied. This is the same pass that every farm
member runs periodically; running it manually is only needed after lowering
the staleness timeout or decommissioning servers in bulk.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := openDataStore(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		out := cmd.OutOrStdout()
		cutoff := time.Now().Add(-viper.GetDuration("stale-timeout"))

		n, err := ds.DeleteRegistrationsTouchedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d stale registration(s)\n", n)

		registrations, err := ds.ListRegistrations(ctx)
		if err != nil {
			return err
		}

		if len(registrations) == 0 {
			fmt.Fprintln(out, "no live servers are registered; instruction pruning skipped")
			return nil
		}

		watermark := registrations[0].Checkpoint
		for _, reg := range registrations[1:] {
			if reg.Checkpoint < watermark {
				watermark = reg.Checkpoint
			}
		}

		if watermark == 0 {
			fmt.Fprintln(out, "a server has not processed any instructions yet; instruction pruning skipped")
			return nil
		}

		n, err = ds.PruneInstructions(ctx, watermark)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d instruction(s) up to #%d\n", n, watermark)

		return nil
	},
}

func init() {
	pruneCmd.Flags().Duration(
		"stale-timeout",
		herald.DefaultStaleTimeout,
		"duration after which an untouched server is considered gone",
	)

	rootCmd.AddCommand(pruneCmd)
}
