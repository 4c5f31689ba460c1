package main

import (
	"context"
	"fmt"
	"log"

	"bodycheck/internal/analysis"
	"bodycheck/internal/config"
)

func main() {
	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		log.Fatal("Error: GOOGLE_API_KEY or GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	client, err := analysis.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}
	defer client.Close()

	models, err := client.ListModels(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Available Models:")
	for _, m := range models {
		fmt.Printf("- %s (Supported methods: %v)\n", m.Name, m.Methods)
	}
}
