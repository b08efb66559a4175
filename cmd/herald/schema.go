package main

import (
	"fmt"

	"github.com/dogmatiq/herald/persistence/sqlpersistence"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "manage the SQL schema",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "create the instruction log and server registry tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openSQL()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sqlpersistence.CreateSchema(cmd.Context(), db); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "schema created")
		return nil
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "drop the instruction log and server registry tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openSQL()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sqlpersistence.DropSchema(cmd.Context(), db); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "schema dropped")
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaDropCmd)
	rootCmd.AddCommand(schemaCmd)
}
