package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobertM05/car-sniper/internal/alert"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll saved alerts and notify on matching listings",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Bool("once", false, "evaluate every alert a single time and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var notifier alert.Notifier
	if cfg.Alerts.WebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.Alerts.WebhookURL)
	}

	interval := time.Duration(cfg.Alerts.PollIntervalSec) * time.Second
	p := alert.NewPoller(st, buildService(st), notifier, interval)

	if once, _ := cmd.Flags().GetBool("once"); once {
		p.RunOnce(ctx)
		return nil
	}
	return p.Run(ctx)
}
