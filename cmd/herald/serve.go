package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/herald"
	"github.com/dogmatiq/herald/region/memorycache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	_ "net/http/pprof"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run a headless farm member",
	Long: `Run a farm member with a single in-memory LRU cache region. It consumes,
heartbeats and prunes like any application server, which makes it useful as a
canary: its /metrics endpoint reports the instruction flow of the whole farm.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, err := newProvider()
		if err != nil {
			return err
		}

		app, err := appIdentity()
		if err != nil {
			return err
		}

		options := []herald.MessengerOption{
			herald.WithApplication(app),
			herald.WithRegion(
				viper.GetString("region"),
				&memorycache.Handler{
					Cache: memorycache.NewLRU(viper.GetInt("region-capacity")),
				},
			),
			herald.WithPollInterval(viper.GetDuration("poll-interval")),
			herald.WithHeartbeatInterval(viper.GetDuration("heartbeat-interval")),
			herald.WithPruneInterval(viper.GetDuration("prune-interval")),
			herald.WithStaleTimeout(viper.GetDuration("stale-timeout")),
			herald.WithLogger(logging.DebugLogger),
		}

		if id := viper.GetString("server-id"); id != "" {
			options = append(options, herald.WithServerID(id))
		}

		messenger := herald.New(p, options...)

		mux := http.NewServeMux()
		mux.HandleFunc(
			"/metrics",
			func(w http.ResponseWriter, _ *http.Request) {
				metrics.WritePrometheus(w, true)
			},
		)
		mux.Handle("/debug/", http.DefaultServeMux)

		server := &http.Server{
			Addr:    viper.GetString("listen"),
			Handler: mux,
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return messenger.Run(ctx)
		})

		g.Go(func() error {
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"serving metrics and pprof on %s as %s\n",
				server.Addr,
				messenger.ServerID(),
			)

			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			// Allow in-flight requests a moment to finish; the parent
			// context is already canceled.
			shutdown, cancel := context.WithTimeout(
				context.Background(),
				5*time.Second,
			)
			defer cancel()

			server.Shutdown(shutdown) // nolint:errcheck

			return ctx.Err()
		})

		return g.Wait()
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":8100", "address to serve /metrics and /debug/pprof on")
	f.String("region", "demo", "name of the LRU cache region to host")
	f.Int("region-capacity", 1024, "entry capacity of the hosted region")
	f.Duration("poll-interval", herald.DefaultPollInterval, "instruction poll interval")
	f.Duration("heartbeat-interval", herald.DefaultHeartbeatInterval, "registration touch interval")
	f.Duration("prune-interval", herald.DefaultPruneInterval, "pruning interval")
	f.Duration("stale-timeout", herald.DefaultStaleTimeout, "duration after which an untouched server is considered gone")

	rootCmd.AddCommand(serveCmd)
}
