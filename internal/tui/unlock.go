// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatvault/chatvault/internal/service"
	"github.com/chatvault/chatvault/internal/vault"
)

// unlockResult carries the outcome of the async setup/unlock command.
// A wrong password is not an error: WrongPassword is a distinct,
// recoverable state rendered as a retry prompt.
type unlockResult struct {
	WrongPassword bool
	Err           error
}

// resetDoneMsg reports the outcome of the forgot-password reset.
type resetDoneMsg struct {
	Err error
}

// unlockModel is the Bubble Tea model for the setup/unlock screen. On an
// uninitialized vault it renders two password inputs (password and
// confirmation) and performs first-time setup; on a locked vault it renders
// one and unlocks.
type unlockModel struct {
	ctx      context.Context
	vault    *vault.Vault
	store    service.ConversationStore
	identity string

	setup        bool
	confirmReset bool
	inputs       []textinput.Model
	focus        int
	submitting   bool
	errMsg       string

	done       bool
	quitByUser bool
}

func newUnlockModel(ctx context.Context, v *vault.Vault, store service.ConversationStore, identity string) (unlockModel, error) {
	initialized, err := v.IsInitialized(ctx)
	if err != nil {
		return unlockModel{}, err
	}

	passwordInput := newPasswordInput("master password")
	passwordInput.Focus()

	m := unlockModel{
		ctx:      ctx,
		vault:    v,
		store:    store,
		identity: identity,
		setup:    !initialized,
		inputs:   []textinput.Model{passwordInput},
	}

	if m.setup {
		m.inputs = append(m.inputs, newPasswordInput("repeat password"))
	}

	return m, nil
}

func newPasswordInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 40
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '*'
	return in
}

func (m unlockModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m unlockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(unlockResult); ok {
		m.submitting = false
		switch {
		case result.Err != nil:
			m.errMsg = result.Err.Error()
		case result.WrongPassword:
			m.errMsg = "Wrong password. Try again."
			m.inputs[0].SetValue("")
		default:
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}

	if result, ok := msg.(resetDoneMsg); ok {
		m.submitting = false
		m.confirmReset = false
		if result.Err != nil {
			m.errMsg = result.Err.Error()
			return m, nil
		}
		// No vault exists anymore: fall into first-time setup.
		m.setup = true
		m.errMsg = ""
		if len(m.inputs) < 2 {
			m.inputs = append(m.inputs, newPasswordInput("repeat password"))
		}
		m.inputs[0].SetValue("")
		m.inputs[1].SetValue("")
		m.inputs[1].Blur()
		m.focus = 0
		m.inputs[0].Focus()
		return m, textinput.Blink
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && m.confirmReset {
		return m.handleConfirmResetKey(keyMsg)
	}
	if ok {
		switch keyMsg.String() {
		case "ctrl+c", "esc":
			m.quitByUser = true
			return m, tea.Quit
		case "ctrl+r":
			if !m.setup && !m.submitting {
				m.confirmReset = true
				m.errMsg = ""
			}
			return m, nil
		case "tab", "shift+tab":
			m.focusNext()
			return m, nil
		case "enter":
			if m.submitting {
				return m, nil
			}

			password := m.inputs[0].Value()
			if password == "" {
				m.errMsg = "Password must not be empty"
				return m, nil
			}
			if m.setup && m.inputs[1].Value() != password {
				m.errMsg = "Passwords do not match"
				return m, nil
			}

			m.errMsg = ""
			m.submitting = true
			return m, m.cmdSubmit(password)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m unlockModel) handleConfirmResetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitByUser = true
		return m, tea.Quit
	case "y":
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		return m, m.cmdReset()
	case "n", "esc":
		m.confirmReset = false
	}
	return m, nil
}

func (m unlockModel) View() string {
	if m.confirmReset {
		return m.viewConfirmReset()
	}

	var b strings.Builder

	if m.setup {
		b.WriteString("No vault exists yet. Choose a master password.\n")
		b.WriteString("It is never stored and cannot be recovered.\n\n")
	} else {
		b.WriteString("Vault is locked.\n\n")
	}

	b.WriteString("Password │ [")
	b.WriteString(m.inputs[0].View())
	b.WriteString("]\n")
	if m.setup {
		b.WriteString("Repeat   │ [")
		b.WriteString(m.inputs[1].View())
		b.WriteString("]\n")
	}

	if m.submitting {
		b.WriteString("\n[Working...]\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	title := "UNLOCK VAULT"
	hotKeys := "enter: confirm │ ctrl+r: forgot password │ esc: quit"
	if m.setup {
		title = "SET UP ENCRYPTION"
		hotKeys = "enter: confirm │ esc: quit"
	}
	return renderPage(title, strings.TrimRight(b.String(), "\n"), hotKeys)
}

func (m unlockModel) viewConfirmReset() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Reset the vault?"))
	b.WriteString("\n\n")
	b.WriteString("Without the password nothing can be recovered. Resetting\n")
	b.WriteString("destroys every stored conversation and key permanently,\n")
	b.WriteString("then starts over with a fresh master password.\n")

	if m.submitting {
		b.WriteString("\n[Working...]\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	return renderPage("FORGOT PASSWORD", strings.TrimRight(b.String(), "\n"), "y: reset everything │ n: back")
}

func (m unlockModel) cmdReset() tea.Cmd {
	ctx := m.ctx
	store := m.store

	return func() tea.Msg {
		return resetDoneMsg{Err: store.ClearAllData(ctx)}
	}
}

func (m unlockModel) cmdSubmit(password string) tea.Cmd {
	ctx := m.ctx
	v := m.vault
	store := m.store
	identity := m.identity
	setup := m.setup

	return func() tea.Msg {
		if setup {
			if err := v.Setup(ctx, password); err != nil {
				return unlockResult{Err: err}
			}
		} else {
			ok, err := v.Unlock(ctx, password)
			if err != nil {
				return unlockResult{Err: err}
			}
			if !ok {
				return unlockResult{WrongPassword: true}
			}
		}

		if err := store.Init(ctx, identity); err != nil {
			return unlockResult{Err: err}
		}
		return unlockResult{}
	}
}

func (m *unlockModel) focusNext() {
	if len(m.inputs) < 2 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + 1) % len(m.inputs)
	m.inputs[m.focus].Focus()
}
