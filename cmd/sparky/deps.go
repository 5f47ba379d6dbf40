package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/assistant"
	"sparky/internal/config"
	"sparky/internal/logging"
	"sparky/internal/scheduler"
	"sparky/internal/settings"
	"sparky/internal/storage"
)

// deps holds everything the front ends share.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	sched    *scheduler.Scheduler
	settings settings.Store
	recorder storage.Recorder
	options  app.Options
	closers  []func()
}

// buildDeps loads .env and the config, then wires storage and the scheduler.
// logPaths redirects logs away from stderr (the TUI owns the terminal).
func buildDeps(ctx context.Context, logPaths ...string) (*deps, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: .env file not loaded: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	for _, p := range logPaths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure log dir: %w", err)
		}
	}
	logger, err := logging.New(level, logPaths...)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger}
	d.closers = append(d.closers, func() { _ = logger.Sync() })

	if d.settings, err = d.openSettings(ctx); err != nil {
		d.close()
		return nil, err
	}

	d.recorder = storage.Nop{}
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("failed to init file recorder", zap.Error(err))
		} else {
			d.recorder = fr
			d.closers = append(d.closers, func() { _ = fr.Close() })
		}
	}

	catalog := assistant.DefaultCatalog()
	if cfg.TemplatesPath != "" {
		if catalog, err = assistant.LoadCatalog(cfg.TemplatesPath); err != nil {
			d.close()
			return nil, err
		}
		logger.Info("📝 Loaded response templates", zap.String("path", cfg.TemplatesPath))
	}

	d.sched = scheduler.New(logger)
	d.sched.Start()
	d.closers = append(d.closers, d.sched.Stop)

	d.options = app.Options{
		ThinkingDelay: cfg.ThinkingDelay,
		BuildDelay:    cfg.BuildDelay,
		Classifier:    assistant.New(catalog),
		Scheduler:     d.sched,
		Settings:      d.settings,
		Recorder:      d.recorder,
		Logger:        logger,
	}
	return d, nil
}

func (d *deps) openSettings(ctx context.Context) (settings.Store, error) {
	switch d.cfg.SettingsBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     d.cfg.RedisAddr,
			Password: d.cfg.RedisPassword,
			DB:       d.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", d.cfg.RedisAddr, err)
		}
		d.closers = append(d.closers, func() { _ = client.Close() })
		d.logger.Info("🗄️ Settings stored in Redis", zap.String("addr", d.cfg.RedisAddr))
		return settings.NewRedisStore(client), nil
	default:
		store, err := settings.NewFileStore(d.cfg.SettingsFilePath)
		if err != nil {
			return nil, err
		}
		d.logger.Info("🗄️ Settings stored in file", zap.String("path", d.cfg.SettingsFilePath))
		return store, nil
	}
}

// close runs the closers in reverse order.
func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
