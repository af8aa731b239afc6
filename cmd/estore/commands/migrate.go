package commands

import (
	"estore/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := openDB(); err != nil {
			return err
		}
		logger.Info("migration finished", zap.String("driver", cfg.DB.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
