package commands

import (
	"fmt"
	"os"

	"estore/internal/config"
	"estore/internal/infra/db"
	"estore/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	// Global flags
	envFlag string

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "estore",
	Short: "eStore - members, catalog, cart and orders",
	Long: `eStore serves the storefront HTTP API and runs its background jobs.

Settings are read from .env, ./config.yaml and ESTORE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if envFlag != "" {
			loaded.App.Env = envFlag
		}
		cfg = loaded

		if _, err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Override app.env (dev/prod)")
}

// 接続してマイグレーションまで済ませる
func openDB() (*gorm.DB, error) {
	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}
