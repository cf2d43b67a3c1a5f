// Command shopkart runs the marketplace API and its maintenance tasks.
//
//	shopkart serve             # HTTP + gRPC
//	shopkart migrate
//	shopkart migrate:rollback
//	shopkart migrate:status
//	shopkart seed              # demo data
//	shopkart route:list
//	shopkart queue:work        # standalone rating worker
//	shopkart queue:failed
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/shopkart/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "shopkart",
	Short:         "Shopkart marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(queueFailedCmd)
}
