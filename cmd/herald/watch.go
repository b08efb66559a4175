package main

import (
	"fmt"

	"github.com/dogmatiq/herald"
	"github.com/dogmatiq/linger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "tail the instruction log",
	Long: `Tail the instruction log from its current head, printing instructions as
they are appended by the farm. Interrupt to stop.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := openDataStore(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		after, err := ds.MaxInstructionID(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "watching after instruction #%d\n", after)

		interval := viper.GetDuration("poll-interval")

		for {
			instructions, err := ds.SelectInstructions(ctx, after, 100)
			if err != nil {
				return err
			}

			for _, inst := range instructions {
				fmt.Fprintf(
					out,
					"#%d  %s  from %s\n",
					inst.ID,
					inst.CreatedAt.Local().Format("15:04:05.000"),
					inst.Origin,
				)

				for _, item := range inst.Items {
					target := item.TargetID
					if item.TargetType != "" {
						target = item.TargetType
					}

					fmt.Fprintf(
						out,
						"    %s %s %s\n",
						item.Region,
						item.Op,
						target,
					)
				}

				after = inst.ID
			}

			if len(instructions) == 100 {
				continue
			}

			if err := linger.Sleep(ctx, interval); err != nil {
				return err
			}
		}
	},
}

func init() {
	watchCmd.Flags().Duration(
		"poll-interval",
		herald.DefaultPollInterval,
		"interval at which the log is polled",
	)

	rootCmd.AddCommand(watchCmd)
}
