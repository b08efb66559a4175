package main

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald/instruction"
	"github.com/dogmatiq/herald/producer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "append an invalidation instruction to the log",
	Long: `Append a single-item invalidation instruction to the log, exactly as a
farm member would. Useful for forcing an eviction across the farm, or for
verifying that servers are consuming.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		op, err := instruction.ParseOp(viper.GetString("op"))
		if err != nil {
			return err
		}

		item := instruction.Item{
			Region:     viper.GetString("region"),
			Op:         op,
			TargetID:   viper.GetString("target-id"),
			TargetType: viper.GetString("target-type"),
		}

		ds, err := openDataStore(ctx)
		if err != nil {
			return err
		}
		defer ds.Close()

		rec := &producer.Recorder{
			Appender: ds,
			Origin:   serverID("herald-cli"),
			Logger:   logging.DiscardLogger{},
		}

		if err := rec.Enqueue(item); err != nil {
			return err
		}

		if err := rec.Flush(ctx); err != nil {
			return err
		}

		last, err := ds.MaxInstructionID(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "appended instruction #%d\n", last)

		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	f.String("region", "", "cache region the instruction applies to")
	f.String("op", instruction.RefreshByID.String(), "operation: refresh-by-id, refresh-by-type, refresh-all or remove-by-id")
	f.String("target-id", "", "target entry ID, for the by-id operations")
	f.String("target-type", "", "target type name, for refresh-by-type")

	rootCmd.AddCommand(sendCmd)
}
