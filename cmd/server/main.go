package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"arogya/internal/analytics"
	"arogya/internal/app"
	"arogya/internal/config"
	"arogya/internal/pending"
	"arogya/internal/scheduler"
	"arogya/internal/session"
	"arogya/internal/telegram"
	"arogya/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if err := scheduler.ValidateSchedule(cfg.ReportSchedule); err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ failed to initialize: %v", err)
	}
	defer a.Close()

	sessions, err := session.Open(cfg.SessionDBPath, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("❌ failed to open session store: %v", err)
	}
	defer sessions.Close()

	var bot *telegram.Bot
	if cfg.TelegramBotToken != "" {
		drafts, derr := pending.NewFileRepository(cfg.PendingQuizPath)
		if derr != nil {
			log.Fatalf("❌ failed to open quiz drafts: %v", derr)
		}
		bot, err = telegram.New(cfg.TelegramBotToken, a.Triage, sessions, drafts, cfg.TelegramAdminChatID)
		if err != nil {
			log.Printf("⚠️ Telegram bot disabled: %v", err)
			bot = nil
		} else {
			go bot.Start(ctx)
		}
	}

	sched := scheduler.New(cfg.ReportSchedule)
	sched.SetReportFunction(func(ctx context.Context) error {
		if n, err := sessions.Purge(); err != nil {
			log.Printf("⚠️ session purge failed: %v", err)
		} else if n > 0 {
			log.Printf("🧹 Purged %d expired sessions", n)
		}
		events, err := a.Recorder.LoadInteractions()
		if err != nil {
			return err
		}
		summary := analytics.AnalyzeDay(events, time.Now().UTC()).GenerateReportSummary()
		log.Printf("📊 %s", summary)
		if bot != nil {
			bot.SendReport(summary)
		}
		return nil
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("❌ failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := web.NewServer(cfg.HTTPAddr, a.Triage, sessions, cfg.CookieSecure)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Println("🛑 Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Printf("❌ web server failed: %v", err)
		}
	}
	if err := srv.Stop(); err != nil {
		log.Printf("⚠️ shutdown: %v", err)
	}
}
