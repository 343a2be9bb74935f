package main

// Seed a canned analyzed lease for local development:
//   go run ./cmd/seed

import (
	"context"
	"log"

	"legaldocs-backend/internal/bootstrap"
	"legaldocs-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	doc, err := app.Documents.CreateTestDocument(ctx)
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	log.Printf("seeded document %s (%s)", doc.ID, doc.Status)
}
