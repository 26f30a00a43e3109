package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/export"
	"github.com/RobertM05/car-sniper/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored ads to a spreadsheet",
	Long: `Writes stored ads to an XLSX or CSV file; the format follows the
output file extension.

Examples:
  carsniper export --out ads.xlsx
  carsniper export --out bmw.csv --make bmw --max-price 20000`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("out", "ads.xlsx", "output file (.xlsx or .csv)")
	f.String("make", "", "filter by make")
	f.String("model", "", "filter by model")
	f.Int("max-price", 0, "filter by maximum price in EUR")
	f.Int("limit", 0, "maximum rows (0=all)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	f := cmd.Flags()
	out, _ := f.GetString("out")
	makeName, _ := f.GetString("make")
	modelName, _ := f.GetString("model")
	maxPrice, _ := f.GetInt("max-price")
	limit, _ := f.GetInt("limit")

	ads, err := st.SearchAds(ctx, store.AdFilter{
		Make:     makeName,
		Model:    modelName,
		MaxPrice: maxPrice,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(out, ".csv"):
		err = export.WriteCSV(out, ads)
	case strings.HasSuffix(out, ".xlsx"):
		err = export.WriteXLSX(out, ads)
	default:
		return eris.Errorf("export: unsupported output format %q", out)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export: done", zap.String("file", out), zap.Int("rows", len(ads)))
	return nil
}
