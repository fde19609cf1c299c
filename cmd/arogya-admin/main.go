package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"arogya/internal/admincli"
	"arogya/internal/app"
	"arogya/internal/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	a, err := app.Open(context.Background(), config.New())
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}

	root := admincli.NewRoot(admincli.Deps{
		Users:   a.Users,
		History: a.History,
		Events:  a.Recorder,
	})
	err = root.Execute()
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
