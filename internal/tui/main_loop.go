// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chatvault/chatvault/internal/service"
	"github.com/chatvault/chatvault/internal/vault"
	"github.com/chatvault/chatvault/models"
)

type screen int

const (
	screenList screen = iota
	screenDetail
	screenPrompt
	screenConfirmReset
)

type promptKind int

const (
	promptNone promptKind = iota
	promptNewConversation
	promptRename
)

// Async command results. Every storage call runs as a tea.Cmd so the UI
// never blocks on SQLite or the vault mutex.
type listLoadedMsg struct {
	items     []models.ConversationSummary
	corrupted int
	err       error
}

type conversationLoadedMsg struct {
	view models.ConversationView
	err  error
}

type messageSavedMsg struct {
	conversationID string
	err            error
}

type actionDoneMsg struct {
	info string
	err  error
}

type resetAllDoneMsg struct {
	err error
}

// mainLoopModel drives the listing and detail screens. It is a value
// type: every Update returns a modified copy, and the final model is
// inspected by MainLoop after the program exits.
type mainLoopModel struct {
	ctx      context.Context
	vault    *vault.Vault
	services *service.Services

	screen screen

	items  []models.ConversationSummary
	cursor int

	view      models.ConversationView
	msgCursor int
	compose   textinput.Model

	prompt     promptKind
	promptIn   textinput.Model
	promptConv string

	corrupted int
	busy      bool
	status    string
	errMsg    string

	locked bool
}

func newMainLoopModel(ctx context.Context, v *vault.Vault, services *service.Services) mainLoopModel {
	compose := textinput.New()
	compose.Placeholder = "type a message"
	compose.CharLimit = 4096
	compose.Width = 60

	promptIn := textinput.New()
	promptIn.CharLimit = 256
	promptIn.Width = 40

	return mainLoopModel{
		ctx:      ctx,
		vault:    v,
		services: services,
		screen:   screenList,
		compose:  compose,
		promptIn: promptIn,
	}
}

func (m mainLoopModel) Init() tea.Cmd {
	return m.cmdLoadList()
}

func (m mainLoopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.items = msg.items
		m.corrupted = msg.corrupted
		if m.cursor >= len(m.items) {
			m.cursor = len(m.items) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case conversationLoadedMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.view = msg.view
		m.msgCursor = len(m.view.Messages) - 1
		m.screen = screenDetail
		m.compose.SetValue("")
		m.compose.Focus()
		return m, textinput.Blink

	case messageSavedMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.compose.SetValue("")
		return m, m.cmdOpenConversation(msg.conversationID)

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.status = msg.info
		if m.screen == screenList || m.screen == screenPrompt {
			m.screen = screenList
			return m, m.cmdLoadList()
		}
		return m, nil

	case resetAllDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.screen = screenList
			m.errMsg = msg.err.Error()
			return m, nil
		}
		// Everything is gone, vault included: hand the session back to the
		// setup screen.
		m.locked = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m mainLoopModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.screen == screenPrompt {
		return m.handlePromptKey(msg)
	}
	if m.screen == screenConfirmReset {
		return m.handleConfirmResetKey(msg)
	}

	switch {
	case key.Matches(msg, keys.quit):
		// "q" composes text in the detail screen; only ctrl+c quits there.
		if m.screen == screenDetail && msg.String() == "q" {
			break
		}
		return m, tea.Quit

	case key.Matches(msg, keys.lock):
		m.vault.Lock()
		m.locked = true
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	if m.screen == screenList {
		return m.handleListKey(msg)
	}
	return m.handleDetailKey(msg)
}

func (m mainLoopModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.enter):
		if item, ok := m.selectedItem(); ok {
			m.busy = true
			m.errMsg = ""
			return m, m.cmdOpenConversation(item.ID)
		}

	case key.Matches(msg, keys.newConv):
		m.prompt = promptNewConversation
		m.promptIn.Placeholder = "conversation title"
		m.promptIn.SetValue("")
		m.promptIn.Focus()
		m.screen = screenPrompt
		return m, textinput.Blink

	case key.Matches(msg, keys.rename):
		if item, ok := m.selectedItem(); ok {
			m.prompt = promptRename
			m.promptConv = item.ID
			m.promptIn.Placeholder = "new title"
			m.promptIn.SetValue(item.Title)
			m.promptIn.Focus()
			m.screen = screenPrompt
			return m, textinput.Blink
		}

	case key.Matches(msg, keys.delete):
		if item, ok := m.selectedItem(); ok {
			m.busy = true
			return m, m.cmdDelete(item.ID)
		}

	case key.Matches(msg, keys.export):
		if item, ok := m.selectedItem(); ok {
			m.busy = true
			return m, m.cmdExport(item.ID)
		}

	case key.Matches(msg, keys.reset):
		m.screen = screenConfirmReset
		m.errMsg = ""
	}

	return m, nil
}

func (m mainLoopModel) handleConfirmResetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.cmdResetAll()
	case "n", "esc":
		m.screen = screenList
	}
	return m, nil
}

func (m mainLoopModel) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.esc):
		m.screen = screenList
		m.compose.Blur()
		m.errMsg = ""
		return m, m.cmdLoadList()

	case key.Matches(msg, keys.up):
		if msg.String() == "up" && m.msgCursor > 0 {
			m.msgCursor--
			return m, nil
		}

	case key.Matches(msg, keys.down):
		if msg.String() == "down" && m.msgCursor < len(m.view.Messages)-1 {
			m.msgCursor++
			return m, nil
		}

	case key.Matches(msg, keys.enter):
		content := strings.TrimSpace(m.compose.Value())
		if content == "" {
			return m, nil
		}
		m.busy = true
		m.errMsg = ""
		return m, m.cmdSaveMessage(m.view.ID, content)

	case key.Matches(msg, keys.copy):
		if m.msgCursor >= 0 && m.msgCursor < len(m.view.Messages) {
			return m, m.cmdCopy(m.view.Messages[m.msgCursor])
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

func (m mainLoopModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, keys.esc):
		m.screen = screenList
		m.prompt = promptNone
		m.promptIn.Blur()
		return m, nil

	case key.Matches(msg, keys.enter):
		value := strings.TrimSpace(m.promptIn.Value())
		if value == "" {
			return m, nil
		}
		kind := m.prompt
		convID := m.promptConv
		m.prompt = promptNone
		m.promptIn.Blur()
		m.busy = true
		if kind == promptNewConversation {
			return m, m.cmdCreate(value)
		}
		return m, m.cmdRename(convID, value)
	}

	var cmd tea.Cmd
	m.promptIn, cmd = m.promptIn.Update(msg)
	return m, cmd
}

func (m mainLoopModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenDetail:
		m.compose, cmd = m.compose.Update(msg)
	case screenPrompt:
		m.promptIn, cmd = m.promptIn.Update(msg)
	}
	return m, cmd
}

func (m mainLoopModel) View() string {
	switch m.screen {
	case screenDetail:
		return m.viewDetail()
	case screenPrompt:
		return m.viewPrompt()
	case screenConfirmReset:
		return m.viewConfirmReset()
	default:
		return m.viewList()
	}
}

func (m mainLoopModel) viewList() string {
	var b strings.Builder

	if len(m.items) == 0 {
		b.WriteString("No conversations yet. Press n to start one.\n")
	}
	for i, item := range m.items {
		line := fmt.Sprintf("%s  (%d msg, %s)",
			fitText(item.Title, 40), item.MessageCount, item.UpdatedAt.Format("2006-01-02 15:04"))
		if item.FolderID != nil {
			line += "  [" + valueOrDash(item.FolderID) + "]"
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.corrupted > 0 {
		b.WriteString("\n")
		b.WriteString(corruptedStyle.Render(fmt.Sprintf("%d corrupted message(s) detected", m.corrupted)))
		b.WriteString("\n")
	}
	b.WriteString(m.footerLines())

	return renderPage("CONVERSATIONS", strings.TrimRight(b.String(), "\n"),
		"enter: open │ n: new │ r: rename │ x: export │ ctrl+d: delete │ ctrl+r: reset │ ctrl+l: lock")
}

func (m mainLoopModel) viewConfirmReset() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Discard all data?"))
	b.WriteString("\n\n")
	b.WriteString("This permanently deletes every conversation, every key and\n")
	b.WriteString("the vault itself, corrupted entries included. The next\n")
	b.WriteString("screen sets up a fresh master password.\n")

	if m.corrupted > 0 {
		b.WriteString("\n")
		b.WriteString(corruptedStyle.Render(fmt.Sprintf("%d corrupted message(s) will be discarded", m.corrupted)))
		b.WriteString("\n")
	}
	b.WriteString(m.footerLines())

	return renderPage("RESET AND DISCARD", strings.TrimRight(b.String(), "\n"), "y: reset everything │ n: back")
}

func (m mainLoopModel) viewDetail() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.view.Title))
	b.WriteString("\n\n")

	if len(m.view.Messages) == 0 {
		b.WriteString(helpStyle.Render("empty conversation"))
		b.WriteString("\n")
	}
	for i, mv := range m.view.Messages {
		prefix := fmt.Sprintf("[%s] %s: ", mv.Timestamp.Format("15:04"), mv.Role)
		var line string
		if mv.Corrupted {
			line = prefix + corruptedStyle.Render("<unrecoverable: "+mv.Reason+">")
		} else {
			line = prefix + fitText(mv.Content, 70)
		}
		if i == m.msgCursor {
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n> ")
	b.WriteString(m.compose.View())
	b.WriteString("\n")
	b.WriteString(m.footerLines())

	return renderPage("CONVERSATION", strings.TrimRight(b.String(), "\n"),
		"enter: send │ up/down: select │ ctrl+y: copy │ esc: back │ ctrl+l: lock")
}

func (m mainLoopModel) viewPrompt() string {
	title := "NEW CONVERSATION"
	if m.prompt == promptRename {
		title = "RENAME CONVERSATION"
	}

	var b strings.Builder
	b.WriteString("Title │ [")
	b.WriteString(m.promptIn.View())
	b.WriteString("]\n")
	b.WriteString(m.footerLines())

	return renderPage(title, strings.TrimRight(b.String(), "\n"), "enter: confirm │ esc: cancel")
}

func (m mainLoopModel) footerLines() string {
	var b strings.Builder
	if m.busy {
		b.WriteString("\n[Working...]\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m mainLoopModel) fail(err error) (tea.Model, tea.Cmd) {
	// Auto-lock can fire between keystrokes; bounce back to the unlock
	// screen instead of rendering a dead session.
	if errors.Is(err, vault.ErrVaultLocked) {
		m.locked = true
		return m, tea.Quit
	}
	m.errMsg = err.Error()
	return m, nil
}

func (m mainLoopModel) selectedItem() (models.ConversationSummary, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return models.ConversationSummary{}, false
	}
	return m.items[m.cursor], true
}

func (m mainLoopModel) cmdLoadList() tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		items, err := convs.List(ctx)
		return listLoadedMsg{items: items, corrupted: convs.CorruptedCount(), err: err}
	}
}

func (m mainLoopModel) cmdOpenConversation(id string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		view, err := convs.GetConversation(ctx, id)
		return conversationLoadedMsg{view: view, err: err}
	}
}

func (m mainLoopModel) cmdSaveMessage(id, content string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		_, err := convs.SaveMessage(ctx, id, models.RoleUser, content)
		return messageSavedMsg{conversationID: id, err: err}
	}
}

func (m mainLoopModel) cmdCreate(title string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		conv, err := convs.CreateConversation(ctx, title, false)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{info: "created " + fitText(conv.Title, 40)}
	}
}

func (m mainLoopModel) cmdRename(id, title string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		ok, err := convs.UpdateTitle(ctx, id, title)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if !ok {
			return actionDoneMsg{info: "conversation no longer exists"}
		}
		return actionDoneMsg{info: "renamed"}
	}
}

func (m mainLoopModel) cmdDelete(id string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		if err := convs.DeleteConversation(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{info: "deleted"}
	}
}

func (m mainLoopModel) cmdExport(id string) tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		bundle, err := convs.ExportConversation(ctx, id)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		raw, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return actionDoneMsg{err: err}
		}

		name := fmt.Sprintf("chatvault-export-%s.json", time.Now().Format("20060102-150405"))
		if err := os.WriteFile(name, raw, 0o600); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{info: "exported to " + name}
	}
}

func (m mainLoopModel) cmdResetAll() tea.Cmd {
	ctx := m.ctx
	convs := m.services.Conversations
	return func() tea.Msg {
		return resetAllDoneMsg{err: convs.ClearAllData(ctx)}
	}
}

func (m mainLoopModel) cmdCopy(mv models.MessageView) tea.Cmd {
	return func() tea.Msg {
		if mv.Corrupted {
			return actionDoneMsg{info: "nothing to copy: message is unrecoverable"}
		}
		if err := clipboard.WriteAll(mv.Content); err != nil {
			return actionDoneMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return actionDoneMsg{info: "copied to clipboard"}
	}
}
