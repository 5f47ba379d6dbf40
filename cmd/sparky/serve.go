package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sparky/internal/analytics"
	"sparky/internal/app"
	"sparky/internal/auth"
	"sparky/internal/telegram"
	"sparky/internal/web"
)

func runServe(cmd *cobra.Command, _ []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	sessions := app.NewManager(d.options)
	defer sessions.Close()

	var bot *telegram.Bot
	if d.cfg.TelegramBotToken != "" {
		bot, err = telegram.New(d.cfg.TelegramBotToken, auth.New(d.cfg.AllowedUsers), sessions, d.recorder, d.cfg.AdminUserID, d.logger)
		if err != nil {
			return err
		}
	} else {
		d.logger.Info("Telegram bot disabled: TELEGRAM_BOT_TOKEN is empty")
	}

	if err := d.sched.Every(d.cfg.DigestSchedule, "daily-digest", func(ctx context.Context) error {
		if bot != nil {
			return bot.SendDigest(ctx)
		}
		stats, err := analytics.DailyReport(d.recorder, time.Now().UTC())
		if err != nil {
			return err
		}
		d.logger.Info("📊 Daily digest",
			zap.String("date", stats.Date),
			zap.Int("messages", stats.TotalMessages),
			zap.Int("sessions", stats.UniqueSessions),
			zap.Int("projects_created", stats.ProjectsCreated),
		)
		return nil
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	server := web.NewServer(d.cfg.HTTPAddr, sessions, d.logger)
	g.Go(func() error { return server.Run(gctx) })
	if bot != nil {
		g.Go(func() error { return bot.Start(gctx) })
	}

	err = g.Wait()
	d.logger.Info("👋 Sparky stopped")
	return err
}
