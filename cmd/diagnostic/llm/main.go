// Command llm sends one prompt through each configured completion provider
// and reports latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/iyunix/go-chatline/internal/config"
	"github.com/iyunix/go-chatline/internal/services"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/iyunix/go-chatline/internal/services/completion"
)

func main() {
	prompt := flag.String("prompt", "What is the answer to life, the universe and everything?", "prompt to send")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-provider timeout")
	flag.Parse()

	cfg := config.Load()
	logger := services.NewLogger("llm-diagnostic")

	engine, err := completion.NewFromConfig(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build completion engine: %v", err)
	}
	if !engine.Configured() {
		log.Fatal("No LLM provider configured. Set OPENAI_API_KEY, GEMINI_API_KEY or FALLBACK_LLM_API_KEY.")
	}

	msgs := []ai.Message{{Role: ai.RoleUser, Content: *prompt}}
	failed := 0
	for i, p := range engine.Providers() {
		role := "primary"
		if i > 0 {
			role = "fallback"
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		start := time.Now()
		text, err := p.GetCompletion(ctx, msgs)
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			failed++
			fmt.Printf("[%s] %s: FAILED after %v: %v\n", role, p.Name(), elapsed.Round(time.Millisecond), err)
			continue
		}
		fmt.Printf("[%s] %s: %v, %d chars\n  %s\n", role, p.Name(), elapsed.Round(time.Millisecond), len(text), preview(text, 200))
	}

	if failed == len(engine.Providers()) {
		log.Fatal("All providers failed")
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
