package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/configkit"
	"github.com/dogmatiq/herald"
	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/persistence/boltpersistence"
	"github.com/dogmatiq/herald/persistence/memorypersistence"
	"github.com/dogmatiq/herald/persistence/redispersistence"
	"github.com/dogmatiq/herald/persistence/sqlpersistence"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// sqlDriverNames maps store types to database/sql driver names.
var sqlDriverNames = map[string]string{
	"sqlite":   "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
}

// newProvider returns the persistence provider selected by the --store flag.
func newProvider() (persistence.Provider, error) {
	store := viper.GetString("store")

	switch store {
	case "memory":
		return &memorypersistence.Provider{}, nil

	case "bolt":
		return &boltpersistence.FileProvider{
			Path: viper.GetString("path"),
		}, nil

	case "sqlite", "mysql", "postgres":
		dsn := viper.GetString("dsn")
		if dsn == "" {
			return nil, fmt.Errorf("the %s store requires the --dsn flag", store)
		}

		return &sqlpersistence.DSNProvider{
			DriverName: sqlDriverNames[store],
			DSN:        dsn,
		}, nil

	case "redis":
		return &redispersistence.OptionsProvider{
			Options: &redis.Options{
				Addr: viper.GetString("redis-addr"),
			},
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized store type (%s)", store)
	}
}

// appIdentity returns the application identity selected by the --app-name
// and --app-key flags.
func appIdentity() (configkit.Identity, error) {
	name := viper.GetString("app-name")
	key := viper.GetString("app-key")

	if name == "" && key == "" {
		return herald.DefaultApplication, nil
	}

	if name == "" {
		name = herald.DefaultApplication.Name
	}
	if key == "" {
		key = herald.DefaultApplication.Key
	}

	return configkit.NewIdentity(name, key)
}

// serverID returns the server ID selected by the --server-id flag, or a
// generated fallback for one-shot commands that only need a distinct origin.
func serverID(fallback string) string {
	if id := viper.GetString("server-id"); id != "" {
		return id
	}

	return fallback
}

// openDataStore opens the data-store selected by the persistence flags.
func openDataStore(ctx context.Context) (persistence.DataStore, error) {
	p, err := newProvider()
	if err != nil {
		return nil, err
	}

	app, err := appIdentity()
	if err != nil {
		return nil, err
	}

	return p.Open(ctx, app)
}

// openSQL opens the raw SQL database selected by the persistence flags, for
// schema management.
func openSQL() (*sql.DB, error) {
	store := viper.GetString("store")

	name, ok := sqlDriverNames[store]
	if !ok {
		return nil, fmt.Errorf("the %s store does not use a SQL schema", store)
	}

	dsn := viper.GetString("dsn")
	if dsn == "" {
		return nil, fmt.Errorf("the %s store requires the --dsn flag", store)
	}

	return sql.Open(name, dsn)
}
