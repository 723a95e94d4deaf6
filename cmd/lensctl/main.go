// lensctl inspects the stocklens cache and analysis history.
//
// Usage:
//
//	lensctl [-db path] stats
//	lensctl [-db path] runs [-limit n]
//	lensctl [-db path] recs [-symbol SYM] [-limit n]
//	lensctl [-db path] data -symbol SYM -source SRC -interval IV [-limit n]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"stocklens/internal/store"
)

func main() {
	dbPath := flag.String("db", "data/stocklens.db", "database path")
	symbol := flag.String("symbol", "", "symbol filter")
	src := flag.String("source", "", "data source (binance/yahoo)")
	interval := flag.String("interval", "", "time interval")
	limit := flag.Int("limit", 10, "number of results")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: lensctl [flags] stats|runs|recs|data")
		flag.PrintDefaults()
		os.Exit(2)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer st.Close()

	switch flag.Arg(0) {
	case "stats":
		showStats(st)
	case "runs":
		showRuns(st, *limit)
	case "recs":
		showRecommendations(st, *symbol, *limit)
	case "data":
		if *symbol == "" || *src == "" || *interval == "" {
			log.Fatal("[FATAL] data requires -symbol, -source and -interval")
		}
		showData(st, *symbol, *src, *interval, *limit)
	default:
		log.Fatalf("[FATAL] unknown command %q", flag.Arg(0))
	}
}

func showStats(st *store.Store) {
	stats, err := st.Stats()
	if err != nil {
		log.Fatalf("[FATAL] stats: %v", err)
	}
	fmt.Printf("total bars:     %d\n", stats.TotalBars)
	fmt.Printf("unique symbols: %d\n", stats.UniqueSymbols)
	if !stats.Oldest.IsZero() {
		fmt.Printf("oldest data:    %s\n", stats.Oldest.Format(time.RFC3339))
		fmt.Printf("newest data:    %s\n", stats.Newest.Format(time.RFC3339))
	}
}

func showRuns(st *store.Store, limit int) {
	runs, err := st.AgentRunSummaries(limit)
	if err != nil {
		log.Fatalf("[FATAL] runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no agent runs found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUN AT\tKIND\tPROCESSED\tFAILED\tSTATUS\tRECS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			r.ID, r.RunAt.Format("2006-01-02 15:04:05"), r.Kind,
			r.AssetsProcessed, r.AssetsFailed, r.Status,
			r.Recommendations, r.Duration.Round(time.Millisecond))
	}
	w.Flush()
}

func showRecommendations(st *store.Store, symbol string, limit int) {
	recs, err := st.RecommendationHistory(symbol, limit)
	if err != nil {
		log.Fatalf("[FATAL] recs: %v", err)
	}
	if len(recs) == 0 {
		fmt.Println("no recommendations found")
		return
	}
	for _, r := range recs {
		fmt.Printf("%s  %-10s %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Symbol, r.Recommendation)
		if r.Price != nil {
			fmt.Printf("  @ %.2f", *r.Price)
		}
		fmt.Printf("  [%s", r.AgentKind)
		if r.LLMProvider != "" {
			fmt.Printf(" %s/%s", r.LLMProvider, r.LLMModel)
		}
		fmt.Println("]")
		if r.Rationale != "" {
			fmt.Printf("    %s\n", r.Rationale)
		}
	}
}

func showData(st *store.Store, symbol, src, interval string, limit int) {
	bars, err := st.RecentBars(symbol, src, interval, limit)
	if err != nil {
		log.Fatalf("[FATAL] data: %v", err)
	}
	if len(bars) == 0 {
		fmt.Printf("no data found for %s\n", symbol)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME")
	for _, b := range bars {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\n",
			b.Time.Format("2006-01-02 15:04"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	w.Flush()
}
