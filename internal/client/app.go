// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/service"
	"github.com/chatvault/chatvault/internal/tui"
)

// defaultIdentity is the profile the conversation store binds to. The
// client keeps a single local profile; the vault password, not the
// identity, is what protects the data.
const defaultIdentity = "local"

var _ Client = (*App)(nil)

// App owns the interactive session lifecycle.
type App struct {
	cfg      *config.Config
	services *service.Services
	ui       *tui.TUI
	logger   *logger.Logger
}

func NewApp(cfg *config.Config, services *service.Services, ui *tui.TUI, log *logger.Logger) (*App, error) {
	if cfg == nil || services == nil || ui == nil {
		return nil, fmt.Errorf("client app: missing dependencies")
	}
	return &App{cfg: cfg, services: services, ui: ui, logger: log}, nil
}

// Run blocks until the user quits. Locking the vault, by hand or by the
// idle timer, returns the session to the unlock screen instead of exiting.
func (a *App) Run() error {
	ctx := context.Background()
	defer a.services.SyncJob.Stop()

	for {
		if err := a.ui.UnlockFlow(ctx, defaultIdentity); err != nil {
			if errors.Is(err, tui.ErrUserQuit) {
				return nil
			}
			return fmt.Errorf("unlock flow: %w", err)
		}

		if a.cfg.Sync.BaseURL != "" {
			a.services.SyncJob.Start(ctx, a.cfg.Sync.Interval)
		}

		locked, err := a.ui.MainLoop(ctx)
		a.services.SyncJob.Stop()
		if err != nil {
			return fmt.Errorf("main loop: %w", err)
		}
		if !locked {
			return nil
		}

		a.logger.Info().Str("func", "Run").Msg("vault locked, returning to unlock screen")
	}
}
