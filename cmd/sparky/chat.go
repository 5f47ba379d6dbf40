package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sparky/internal/app"
	"sparky/internal/tui"
)

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// the terminal belongs to the UI, so logs go next to the interaction log
	d, err := buildDeps(ctx, filepath.Join("logs", "sparky.log"))
	if err != nil {
		return err
	}
	defer d.close()

	ctrl, err := app.New(ctx, d.options)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	d.logger.Info("💬 Terminal chat started", zap.String("session", ctrl.ID()))
	return tui.Run(ctrl)
}
