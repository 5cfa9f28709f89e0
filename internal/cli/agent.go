package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pulse/internal/monitoring"
	"pulse/internal/notifications"
	"pulse/internal/web"
)

func init() {
	rootCmd.AddCommand(agentCmd)
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the local agent: dashboard polling, push inbox and live feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if restored, err := a.identity.Restore(ctx); err != nil {
			return err
		} else if !restored {
			logrus.Warn("No stored user; requests will be sent without a user id")
		}

		logrus.WithFields(logrus.Fields{
			"api":       cfg.API.BaseURL,
			"listen":    cfg.Agent.Listen,
			"interval":  cfg.Agent.RefreshInterval,
			"threshold": cfg.Agent.FailureThreshold,
			"storage":   a.store.Path(),
		}).Info("Starting pulse agent")

		inbox := notifications.NewService(a.store, a.metrics)
		poller := monitoring.NewPoller(a.repos.Dashboard, cfg.Agent.RefreshInterval,
			monitoring.WithRecorder(a.metrics),
			monitoring.WithTransitions(monitoring.NewStateTracker(cfg.Agent.FailureThreshold), inbox),
		)
		server := web.NewServer(cfg, inbox, poller, a.store, a.metrics)

		if err := server.Start(ctx); err != nil {
			return err
		}
		poller.Start(ctx)

		<-ctx.Done()
		logrus.Info("Received shutdown signal")

		poller.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Agent server did not shut down cleanly")
		}

		logrus.Info("Shutdown complete")
		return nil
	},
}
