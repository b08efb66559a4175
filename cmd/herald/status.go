package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dogmatiq/herald"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the farm's registrations and log position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := openDataStore(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		head, err := ds.MaxInstructionID(ctx)
		if err != nil {
			return err
		}

		registrations, err := ds.ListRegistrations(ctx)
		if err != nil {
			return err
		}

		staleTimeout := viper.GetDuration("stale-timeout")
		now := time.Now()

		watermark := uint64(0)
		live := 0
		for _, reg := range registrations {
			if now.Sub(reg.LastTouchedAt) >= staleTimeout {
				continue
			}

			if live == 0 || reg.Checkpoint < watermark {
				watermark = reg.Checkpoint
			}
			live++
		}

		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "log head:  #%d\n", head)
		if live > 0 {
			fmt.Fprintf(out, "watermark: #%d (%d live server(s))\n", watermark, live)
		} else {
			fmt.Fprintf(out, "watermark: none (no live servers; pruning is suspended)\n")
		}
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "SERVER\tCHECKPOINT\tLAG\tLAST TOUCHED\tSTATE\tURL")

		for _, reg := range registrations {
			state := "live"
			if now.Sub(reg.LastTouchedAt) >= staleTimeout {
				state = "stale"
			}

			fmt.Fprintf(
				w,
				"%s\t#%d\t%d\t%s\t%s\t%s\n",
				reg.ServerID,
				reg.Checkpoint,
				head-reg.Checkpoint,
				reg.LastTouchedAt.Local().Format(time.RFC3339),
				state,
				reg.AdvertiseURL,
			)
		}

		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().Duration(
		"stale-timeout",
		herald.DefaultStaleTimeout,
		"duration after which an untouched server is considered gone",
	)

	rootCmd.AddCommand(statusCmd)
}
