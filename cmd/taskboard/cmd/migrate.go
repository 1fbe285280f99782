package cmd

import (
	"github.com/spf13/cobra"
	"go.pilab.hu/taskboard/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Applies the SQL migrations for sqlite and postgres. For mongodb it ensures the collection indexes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		// Opening a mongodb store already ensures indexes.
		store, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		msg := "Migrations applied"
		if cfg.StoreDriver == config.DriverMongoDB {
			msg = "Indexes ensured"
		}
		appLogger.Info(ctx, msg, map[string]interface{}{"store_driver": cfg.StoreDriver})
		return nil
	},
}
