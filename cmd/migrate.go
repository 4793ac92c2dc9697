package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Connects to DATABASE_URL, applies every pending embedded migration and lists the applied versions.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	applied, err := b.pool.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, v := range applied {
		fmt.Printf("  %s\n", v)
	}
	fmt.Printf("\n%d migrations applied\n", len(applied))
	return nil
}
