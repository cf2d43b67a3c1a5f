package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/internal/kernel"
	"github.com/shashiranjanraj/shopkart/pkg/app"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

var migrateOnServe bool

// shopkart serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		if migrateOnServe {
			if err := runMigrations(k.DB); err != nil {
				k.Close()
				return err
			}
		}

		if n := config.QueueWorkers(); n > 0 {
			k.Queue.Start(ctx, n)
			logger.Info("queue workers started", "workers", n, "driver", config.QueueDriver())
		}

		return app.New().
			Routes(k.Routes).
			Health(k.Ping).
			OnShutdown(k.Close).
			Serve(ctx)
	},
}

// shopkart route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := app.New().Routes((&kernel.Kernel{}).Routes).RouteList()
		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", false, "Run pending migrations before serving")
}
