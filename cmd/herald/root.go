package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "distributed cache invalidation over a shared database",
	Long: `herald coordinates cache invalidation across a farm of servers that share a
database, using the database itself as the transport.

Every flag can also be supplied as an environment variable with a HERALD_
prefix (e.g. HERALD_STORE=postgres), or via a .env / .env.local file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.PersistentFlags()
	f.String("store", "memory", "store type: memory, bolt, sqlite, mysql, postgres or redis")
	f.String("dsn", "", "data-source name for SQL stores")
	f.String("path", "/var/run/herald.boltdb", "database file path for the bolt store")
	f.String("redis-addr", "127.0.0.1:6379", "server address for the redis store")
	f.String("app-name", "", "application name the farm is registered under")
	f.String("app-key", "", "application key the farm is registered under")
	f.String("server-id", "", "ID of this server within the farm")
}

// initConfig loads environment files and binds HERALD_* environment
// variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("herald")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
