package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/database/seeders"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/migration"
)

func bootDB() error {
	if err := config.Load(); err != nil {
		return err
	}
	return database.Connect()
}

func runMigrations(db *gorm.DB) error {
	ran, err := migration.New(db).Run()
	if err != nil {
		return err
	}
	if len(ran) == 0 {
		fmt.Println("Nothing to migrate.")
	}
	for _, name := range ran {
		fmt.Println("  migrated:", name)
	}
	return nil
}

// shopkart migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		return runMigrations(database.DB)
	},
}

// shopkart migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		rolled, err := migration.New(database.DB).Rollback()
		if err != nil {
			return err
		}
		if len(rolled) == 0 {
			fmt.Println("Nothing to roll back.")
		}
		for _, name := range rolled {
			fmt.Println("  rolled back:", name)
		}
		return nil
	},
}

// shopkart migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		rows, err := migration.New(database.DB).Status()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tRAN\tBATCH")
		for _, r := range rows {
			batch := "-"
			if r.Ran {
				batch = fmt.Sprint(r.Batch)
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", r.Name, r.Ran, batch)
		}
		return w.Flush()
	},
}

// shopkart seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, a shop, products and an offer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		return seeders.RunAll(database.DB)
	},
}
