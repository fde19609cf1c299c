package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"arogya/internal/app"
	"arogya/internal/config"
	"arogya/internal/pending"
	"arogya/internal/session"
	"arogya/internal/telegram"
)

// Runs the Telegram front-end on its own, without the web server.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.TelegramBotToken == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close()

	links, err := session.Open(cfg.SessionDBPath, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer links.Close()

	drafts, err := pending.NewFileRepository(cfg.PendingQuizPath)
	if err != nil {
		log.Fatalf("failed to open quiz drafts: %v", err)
	}

	bot, err := telegram.New(cfg.TelegramBotToken, a.Triage, links, drafts, cfg.TelegramAdminChatID)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}
	bot.Start(ctx)
}
