package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"estore/internal/event"
	"estore/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Dispatch flags
	dispatchOnce bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver pending outbox events",
	Long: `Deliver pending outbox events to redis (or the log when redis is not set) and analytics.

Without --once it keeps polling until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		d := rt.newDispatcher(event.LogSubscriber{})
		if dispatchOnce {
			n, err := d.Drain(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "delivered %d events\n", n)
			return nil
		}

		stopDispatch := d.Start(ctx)
		<-ctx.Done()
		logger.Info("dispatcher stopping")
		if err := stopDispatch(cmd.Context()); err != nil {
			logger.Warn("dispatcher stop failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().BoolVar(&dispatchOnce, "once", false, "Drain the outbox once and exit")
}
