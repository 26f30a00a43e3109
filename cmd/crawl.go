package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RobertM05/car-sniper/internal/crawler"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the background crawl loop over the target list",
	Long: `Deep-searches every target in the targets file, persists what it
finds, retires ads not seen within the stale window, and repeats until
interrupted. With --once a single cycle runs and the command exits.`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().Bool("once", false, "run a single crawl cycle and exit")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	c := crawler.New(st, buildService(st), cfg.Crawler)

	if once, _ := cmd.Flags().GetBool("once"); once {
		return c.RunCycle(ctx)
	}
	return c.Run(ctx)
}
