// SPDX-License-Identifier: Apache-2.0

// Package tui is the terminal UI collaborator: it renders vault state,
// the conversation listing with corrupted counts, and a detail view, and
// issues setup/unlock/lock/reset and CRUD commands to the service layer.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/service"
	"github.com/chatvault/chatvault/internal/vault"
)

var ErrUserQuit = errors.New("user quit")

type TUI struct {
	vault    *vault.Vault
	services *service.Services
}

func New(v *vault.Vault, services *service.Services, _ *logger.Logger) (*TUI, error) {
	return &TUI{vault: v, services: services}, nil
}

// UnlockFlow runs the setup/unlock screen until the vault is unlocked and
// the conversation store is bound to identity, or the user quits.
func (t *TUI) UnlockFlow(ctx context.Context, identity string) error {
	model, err := newUnlockModel(ctx, t.vault, t.services.Conversations, identity)
	if err != nil {
		return err
	}

	finalModel, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if runErr != nil {
		return runErr
	}

	result, ok := finalModel.(unlockModel)
	if !ok {
		return tea.ErrProgramKilled
	}
	if result.quitByUser {
		return ErrUserQuit
	}
	return nil
}

// MainLoop runs the conversation screens until the user quits or locks the
// vault. A true result means the vault was locked and the unlock flow
// should run again.
func (t *TUI) MainLoop(ctx context.Context) (locked bool, err error) {
	model := newMainLoopModel(ctx, t.vault, t.services)
	finalModel, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if runErr != nil {
		return false, runErr
	}

	result, ok := finalModel.(mainLoopModel)
	if !ok {
		return false, tea.ErrProgramKilled
	}
	return result.locked, nil
}
