// SPDX-License-Identifier: Apache-2.0

// Package service implements the conversation store on top of the vault and
// the repositories: encrypted CRUD, partial-failure reads, export/import
// bundles and the background sync push job.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/internal/utils"
	"github.com/chatvault/chatvault/models"
)

// storageRetryDelay is the pause before the single storage retry.
const storageRetryDelay = 50 * time.Millisecond

const reasonAuthenticationFailed = "authentication failed"
const reasonKeyUnrecoverable = "conversation key unrecoverable"

type initState int

const (
	initNone initState = iota
	initInProgress
	initReady
)

type conversationService struct {
	convs    store.ConversationRepository
	vault    KeyVault
	keychain crypto.KeyChain
	ids      *utils.UUIDGenerator
	logger   *logger.Logger

	mu       sync.Mutex
	state    initState
	identity string

	// corruptedIDs collects the IDs of quarantined messages so a
	// conversation reopened many times counts each bad row once.
	corruptedIDs map[string]struct{}
}

// NewConversationService returns the [ConversationStore] implementation.
func NewConversationService(convs store.ConversationRepository, kv KeyVault, keychain crypto.KeyChain, log *logger.Logger) ConversationStore {
	return &conversationService{
		convs:    convs,
		vault:    kv,
		keychain: keychain,
		ids:      utils.NewUUIDGenerator(),
		logger:   log,
	}
}

// retryStorage applies the storage failure policy: retry once, then
// surface. Not-found sentinels are never storage faults and pass through
// immediately.
func retryStorage(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(storageRetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConversationNotFound) ||
			errors.Is(err, store.ErrWrappedKeyNotFound) ||
			errors.Is(err, store.ErrVaultParamsNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (s *conversationService) Init(ctx context.Context, identity string) error {
	s.mu.Lock()
	switch {
	case s.state == initInProgress:
		s.mu.Unlock()
		return ErrInitializationInProgress
	case s.state == initReady && s.identity == identity:
		s.mu.Unlock()
		// Reentrant init for the same identity only refreshes the listing.
		_, err := s.List(ctx)
		return err
	}
	s.state = initInProgress
	s.mu.Unlock()

	if err := s.initialize(ctx, identity); err != nil {
		s.setState(initNone, "")
		return err
	}
	s.setState(initReady, identity)
	return nil
}

func (s *conversationService) initialize(ctx context.Context, identity string) error {
	if _, err := s.vault.MasterKey(); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}

	var summaries []models.ConversationSummary
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		summaries, err = s.convs.ListPersistent(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("load listing index: %w", err)
	}

	s.logger.Info().
		Str("func", "conversationService.Init").
		Str("identity", identity).
		Int("conversations", len(summaries)).
		Msg("conversation store ready")
	return nil
}

func (s *conversationService) setState(st initState, identity string) {
	s.mu.Lock()
	s.state = st
	s.identity = identity
	s.mu.Unlock()
}

func (s *conversationService) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == initReady
}

func (s *conversationService) requireReady() error {
	if !s.ready() {
		return ErrNotReady
	}
	return nil
}

func (s *conversationService) markCorrupted(messageID string) {
	s.mu.Lock()
	if s.corruptedIDs == nil {
		s.corruptedIDs = make(map[string]struct{})
	}
	s.corruptedIDs[messageID] = struct{}{}
	s.mu.Unlock()
}

func (s *conversationService) resetCorrupted() {
	s.mu.Lock()
	s.corruptedIDs = nil
	s.mu.Unlock()
}

func (s *conversationService) CreateConversation(ctx context.Context, title string, temporary bool) (models.Conversation, error) {
	if err := s.requireReady(); err != nil {
		return models.Conversation{}, err
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		ID:          s.ids.Generate(),
		Title:       title,
		IsTemporary: temporary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// No CEK yet: keys are allocated on the first write.
	err := retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.SaveConversation(ctx, conv)
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("save conversation: %w", err)
	}

	return conv, nil
}

func (s *conversationService) SaveMessage(ctx context.Context, conversationID string, role models.Role, content string) (models.Message, error) {
	if err := s.requireReady(); err != nil {
		return models.Message{}, err
	}

	cek, created, err := s.conversationKeyOrCreate(ctx, conversationID)
	if err != nil {
		return models.Message{}, err
	}

	blob, err := s.keychain.Encrypt([]byte(content), cek)
	if err != nil {
		return models.Message{}, fmt.Errorf("encrypt message: %w", err)
	}

	msg := models.Message{
		ID:             s.ids.Generate(),
		ConversationID: conversationID,
		Role:           role,
		Body:           blob,
		Timestamp:      time.Now().UTC(),
	}

	err = retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.AppendMessage(ctx, msg)
	})
	if err != nil {
		if created && errors.Is(err, store.ErrConversationNotFound) {
			// First write to a conversation that does not exist: drop the
			// key that was just allocated for it.
			_ = s.vault.DeleteConversationKey(ctx, conversationID)
		}
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}

	return msg, nil
}

// conversationKeyOrCreate returns the conversation's CEK, generating and
// storing a fresh one when the conversation has never been written to. The
// second result reports whether a key was created by this call.
func (s *conversationService) conversationKeyOrCreate(ctx context.Context, conversationID string) ([]byte, bool, error) {
	cek, found, err := s.vault.ConversationKey(ctx, conversationID)
	if err != nil {
		return nil, false, fmt.Errorf("get conversation key: %w", err)
	}
	if found {
		return cek, false, nil
	}

	cek, err = s.keychain.GenerateConversationKey()
	if err != nil {
		return nil, false, fmt.Errorf("generate conversation key: %w", err)
	}
	if err = s.vault.StoreConversationKey(ctx, conversationID, cek); err != nil {
		return nil, false, fmt.Errorf("store conversation key: %w", err)
	}

	return cek, true, nil
}

func (s *conversationService) GetConversation(ctx context.Context, id string) (models.ConversationView, error) {
	if err := s.requireReady(); err != nil {
		return models.ConversationView{}, err
	}

	var conv models.Conversation
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.convs.GetConversation(ctx, id)
		return err
	})
	if err != nil {
		return models.ConversationView{}, fmt.Errorf("load conversation: %w", err)
	}

	view := models.ConversationView{
		ID:          conv.ID,
		Title:       conv.Title,
		FolderID:    conv.FolderID,
		IsTemporary: conv.IsTemporary,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
		Messages:    make([]models.MessageView, 0, len(conv.Messages)),
	}
	if len(conv.Messages) == 0 {
		return view, nil
	}

	cek, found, err := s.vault.ConversationKey(ctx, id)
	switch {
	case err != nil && errors.Is(err, crypto.ErrAuthenticationFailure):
		// The wrapped key no longer unwraps under the current master key,
		// typically after a vault reset. Every message is quarantined.
		found = false
	case err != nil:
		return models.ConversationView{}, fmt.Errorf("get conversation key: %w", err)
	}

	for _, msg := range conv.Messages {
		mv := models.MessageView{Role: msg.Role, Timestamp: msg.Timestamp}

		switch {
		case !found:
			mv.Corrupted = true
			mv.Reason = reasonKeyUnrecoverable
		default:
			plain, decErr := s.keychain.Decrypt(msg.Body, cek)
			if decErr != nil {
				mv.Corrupted = true
				mv.Reason = reasonAuthenticationFailed
			} else {
				mv.Content = string(plain)
			}
		}

		if mv.Corrupted {
			view.CorruptedCount++
			s.markCorrupted(msg.ID)
			s.logger.Warn().
				Str("func", "conversationService.GetConversation").
				Str("conversation_id", id).
				Str("message_id", msg.ID).
				Str("reason", mv.Reason).
				Msg("message quarantined")
		}
		view.Messages = append(view.Messages, mv)
	}

	return view, nil
}

func (s *conversationService) List(ctx context.Context) ([]models.ConversationSummary, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}

	var list []models.ConversationSummary
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.convs.ListPersistent(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.requireReady(); err != nil {
		return err
	}

	// The repository removes the conversation, its messages and its
	// wrapped key in one transaction; this evicts the cached CEK too.
	err := retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.DeleteConversation(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	if err = s.vault.DeleteConversationKey(ctx, id); err != nil {
		s.logger.Warn().
			Str("func", "conversationService.DeleteConversation").
			Str("conversation_id", id).
			Err(err).
			Msg("failed to evict cached conversation key")
	}
	return nil
}

func (s *conversationService) UpdateTitle(ctx context.Context, id, title string) (bool, error) {
	if !s.ready() {
		return false, nil
	}

	var ok bool
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.convs.UpdateTitle(ctx, id, title)
		return err
	})
	return ok, err
}

func (s *conversationService) MoveToFolder(ctx context.Context, id string, folderID *string) (bool, error) {
	if !s.ready() {
		return false, nil
	}

	var ok bool
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.convs.UpdateFolder(ctx, id, folderID)
		return err
	})
	return ok, err
}

func (s *conversationService) MakePersistent(ctx context.Context, id string) (bool, error) {
	if !s.ready() {
		return false, nil
	}

	var ok bool
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.convs.SetPersistent(ctx, id)
		return err
	})
	return ok, err
}

func (s *conversationService) ClearAllConversations(ctx context.Context) error {
	if err := s.requireReady(); err != nil {
		return err
	}

	err := retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.DeleteAllConversations(ctx)
	})
	if err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	s.resetCorrupted()
	return nil
}

func (s *conversationService) ClearAllData(ctx context.Context) error {
	err := retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.DeleteAllConversations(ctx)
	})
	if err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	if err = s.vault.Clear(ctx); err != nil {
		return fmt.Errorf("clear vault: %w", err)
	}

	s.resetCorrupted()
	s.setState(initNone, "")
	return nil
}

func (s *conversationService) CorruptedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.corruptedIDs)
}
