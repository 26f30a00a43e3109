package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the model catalog",
	Long: `Loads the built-in catalog of common model lines and generations.
With --file, entries are read from a YAML file instead:

  entries:
    - make: bmw
      model: seria-3
      generation: F30
      min_year: 2012
      max_year: 2019`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("file", "", "YAML file with catalog entries")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		n, err := catalog.SeedFromFile(ctx, st, path)
		if err != nil {
			return err
		}
		zap.L().Info("seed: loaded entries from file", zap.String("file", path), zap.Int("count", n))
		return nil
	}

	if err := catalog.SeedSampleData(ctx, st); err != nil {
		return err
	}
	zap.L().Info("seed: loaded built-in catalog")
	return nil
}
