// Command memory runs repeated searches against the configured memory store
// and reports average latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/iyunix/go-chatline/internal/config"
	"github.com/iyunix/go-chatline/internal/services"
	"github.com/iyunix/go-chatline/internal/services/memory"
)

func main() {
	runs := flag.Int("runs", 5, "number of searches")
	topK := flag.Int("topk", 5, "results per search")
	userID := flag.String("user", "diagnostic-user", "user id to scope the search to")
	query := flag.String("query", "What did we discuss about deployment last week?", "search text")
	seed := flag.Bool("seed", false, "save one entry for the user before searching")
	flag.Parse()

	cfg := config.Load()
	logger := services.NewLogger("memory-diagnostic")

	store, err := memory.NewFromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build memory store: %v", err)
	}
	fmt.Printf("Memory provider: %s\n", store.Name())

	ctx := context.Background()
	if *seed {
		err := store.Save(ctx, memory.Entry{
			UserID:    *userID,
			ChatID:    "diagnostic",
			Text:      "User: " + *query + "\nAssistant: diagnostic seed entry",
			CreatedAt: time.Now(),
		})
		if err != nil {
			log.Fatalf("Seed save failed: %v", err)
		}
	}

	var total time.Duration
	var hits int
	for i := 1; i <= *runs; i++ {
		start := time.Now()
		snippets, err := store.Search(ctx, *userID, *query, *topK)
		elapsed := time.Since(start)
		if err != nil {
			log.Fatalf("Search %d failed: %v", i, err)
		}
		total += elapsed
		hits += len(snippets)
		fmt.Printf("run %d: %v, %d results\n", i, elapsed.Round(time.Millisecond), len(snippets))
		if i == 1 {
			for _, s := range snippets {
				fmt.Printf("  %.3f  %s\n", s.Score, s.Text)
			}
		}
	}

	if *runs > 0 {
		fmt.Printf("average latency: %v over %d runs (%d results total)\n", (total / time.Duration(*runs)).Round(time.Millisecond), *runs, hits)
	}
}
