package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RobertM05/car-sniper/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the marketplaces for a car",
	Long: `Runs one search across the configured marketplaces and prints the
merged, deduplicated results.

Examples:
  # Cheapest 320d under 20000 EUR
  carsniper search --make bmw --model 320d --max-price 20000

  # F30-generation cars only, newest first
  carsniper search --make bmw --model 320d --generation F30 --sort year --order desc

  # Only one marketplace, JSON output
  carsniper search --make audi --model a4 --site autovit --json`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("make", "", "car make (required)")
	f.String("model", "", "car model")
	f.String("generation", "", "generation code, e.g. F30")
	f.Int("min-price", 0, "minimum price in EUR")
	f.Int("max-price", 0, "maximum price in EUR")
	f.Int("min-year", 0, "minimum first-registration year")
	f.Int("max-year", 0, "maximum first-registration year")
	f.Int("max-km", 0, "maximum mileage")
	f.Int("min-cc", 0, "minimum engine displacement")
	f.Int("min-hp", 0, "minimum horsepower")
	f.Int("limit", 0, "maximum results (0=config default)")
	f.Int("max-pages", 0, "result pages per source (0=config default)")
	f.String("site", "", "restrict to one source: olx or autovit")
	f.String("sort", "price", "sort key: price, year or km")
	f.String("order", "asc", "sort order: asc or desc")
	f.Bool("json", false, "print results as JSON")
	_ = searchCmd.MarkFlagRequired("make")

	rootCmd.AddCommand(searchCmd)
}

func queryFromFlags(cmd *cobra.Command) model.SearchQuery {
	f := cmd.Flags()
	str := func(name string) string { v, _ := f.GetString(name); return v }
	num := func(name string) int { v, _ := f.GetInt(name); return v }

	return model.SearchQuery{
		Make:       str("make"),
		Model:      str("model"),
		Generation: str("generation"),
		MinPrice:   num("min-price"),
		MaxPrice:   num("max-price"),
		MinYear:    num("min-year"),
		MaxYear:    num("max-year"),
		MaxKM:      num("max-km"),
		MinCC:      num("min-cc"),
		MinHP:      num("min-hp"),
		Limit:      num("limit"),
		MaxPages:   num("max-pages"),
		Site:       str("site"),
		Sort:       model.SortKey(str("sort")),
		Order:      model.SortOrder(str("order")),
	}
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := buildService(st)
	results, err := svc.Search(ctx, queryFromFlags(cmd))
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no listings found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRICE\tYEAR\tKM\tSOURCE\tTITLE\tLINK")
	for _, l := range results {
		fmt.Fprintf(w, "%d €\t%s\t%s\t%s\t%s\t%s\n",
			l.Price, orDash(l.Year), orDash(l.KM), l.Source, l.Title, l.Link)
	}
	return w.Flush()
}

func orDash(v int) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", v)
}
