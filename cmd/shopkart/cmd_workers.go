package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopkart/internal/kernel"
)

var queueWorkersFlag int

// shopkart queue:work runs rating jobs outside the API process. Only
// useful with QUEUE_DRIVER=redis; the memory driver is per-process.
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start a standalone queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 1
		}
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		wg := k.Queue.Start(ctx, workers)
		<-ctx.Done()
		wg.Wait()
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// shopkart queue:failed
var queueFailedCmd = &cobra.Command{
	Use:   "queue:failed",
	Short: "List jobs that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close()

		failed, err := k.Queue.FailedJobs(ctx)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			fmt.Println("No failed jobs.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tJOB\tATTEMPTS\tFAILED AT\tERROR")
		for _, j := range failed {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", j.ID, j.JobType, j.Attempts, j.FailedAt.Format("2006-01-02 15:04:05"), j.Error)
		}
		return w.Flush()
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 4, "Number of concurrent workers")
}
