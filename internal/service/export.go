// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/models"
)

func (s *conversationService) ExportConversation(ctx context.Context, id string) (models.ConversationBundle, error) {
	if err := s.requireReady(); err != nil {
		return models.ConversationBundle{}, err
	}
	return s.exportConversation(ctx, id)
}

func (s *conversationService) exportConversation(ctx context.Context, id string) (models.ConversationBundle, error) {
	var conv models.Conversation
	err := retryStorage(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.convs.GetConversation(ctx, id)
		return err
	})
	if err != nil {
		return models.ConversationBundle{}, fmt.Errorf("load conversation: %w", err)
	}
	if conv.IsTemporary {
		return models.ConversationBundle{}, ErrTemporaryConversation
	}

	bundle := models.ConversationBundle{
		Version:    models.BundleVersion,
		Format:     models.BundleFormatConversation,
		ExportedAt: time.Now().UTC(),
		ID:         conv.ID,
		Title:      conv.Title,
		FolderID:   conv.FolderID,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
		Messages:   make([]models.BundleMessage, 0, len(conv.Messages)),
	}
	if len(conv.Messages) == 0 {
		return bundle, nil
	}

	cek, found, err := s.vault.ConversationKey(ctx, id)
	if err != nil && !errors.Is(err, crypto.ErrAuthenticationFailure) {
		return models.ConversationBundle{}, fmt.Errorf("get conversation key: %w", err)
	}
	if !found || err != nil {
		// Nothing in this conversation is exportable without its key; the
		// rows stay quarantined in storage.
		for _, msg := range conv.Messages {
			s.markCorrupted(msg.ID)
		}
		s.logger.Warn().
			Str("func", "conversationService.ExportConversation").
			Str("conversation_id", id).
			Int("skipped", len(conv.Messages)).
			Msg("conversation key unrecoverable, exporting empty bundle")
		return bundle, nil
	}

	for _, msg := range conv.Messages {
		plain, decErr := s.keychain.Decrypt(msg.Body, cek)
		if decErr != nil {
			// Skip-on-failure at the item level: the corrupted row stays in
			// storage, the rest of the export proceeds.
			s.markCorrupted(msg.ID)
			s.logger.Warn().
				Str("func", "conversationService.ExportConversation").
				Str("conversation_id", id).
				Str("message_id", msg.ID).
				Msg("skipping undecryptable message")
			continue
		}
		bundle.Messages = append(bundle.Messages, models.BundleMessage{
			Role:      msg.Role,
			Content:   string(plain),
			Timestamp: msg.Timestamp,
		})
	}

	return bundle, nil
}

func (s *conversationService) ExportAll(ctx context.Context) (models.ArchiveBundle, error) {
	if err := s.requireReady(); err != nil {
		return models.ArchiveBundle{}, err
	}

	summaries, err := s.List(ctx)
	if err != nil {
		return models.ArchiveBundle{}, err
	}

	archive := models.ArchiveBundle{
		Version:       models.BundleVersion,
		Format:        models.BundleFormatArchive,
		ExportedAt:    time.Now().UTC(),
		Conversations: make([]models.ConversationBundle, 0, len(summaries)),
	}

	for _, summary := range summaries {
		bundle, err := s.exportConversation(ctx, summary.ID)
		if err != nil {
			s.logger.Warn().
				Str("func", "conversationService.ExportAll").
				Str("conversation_id", summary.ID).
				Err(err).
				Msg("skipping conversation in archive export")
			continue
		}
		archive.Conversations = append(archive.Conversations, bundle)
	}

	return archive, nil
}

// bundleHeader carries only the self-describing tags so Import can dispatch
// without assuming structure.
type bundleHeader struct {
	Version int    `json:"version"`
	Format  string `json:"format"`
}

func (s *conversationService) Import(ctx context.Context, raw []byte) ([]models.Conversation, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}

	var header bundleHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if header.Version != models.BundleVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBundleVersion, header.Version)
	}

	switch header.Format {
	case models.BundleFormatConversation:
		var bundle models.ConversationBundle
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return nil, fmt.Errorf("decode conversation bundle: %w", err)
		}
		conv, err := s.importOne(ctx, bundle)
		if err != nil {
			return nil, err
		}
		return []models.Conversation{conv}, nil

	case models.BundleFormatArchive:
		var archive models.ArchiveBundle
		if err := json.Unmarshal(raw, &archive); err != nil {
			return nil, fmt.Errorf("decode archive bundle: %w", err)
		}

		imported := make([]models.Conversation, 0, len(archive.Conversations))
		for _, bundle := range archive.Conversations {
			conv, err := s.importOne(ctx, bundle)
			if err != nil {
				s.logger.Warn().
					Str("func", "conversationService.Import").
					Str("bundle_id", bundle.ID).
					Err(err).
					Msg("skipping conversation in archive import")
				continue
			}
			imported = append(imported, conv)
		}
		return imported, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBundleFormat, header.Format)
	}
}

// importOne recreates a bundled conversation under a fresh local identity
// and a freshly generated CEK. Content is always re-encrypted here; a
// bundle from another device carries no key material and none would be
// trusted if it did.
func (s *conversationService) importOne(ctx context.Context, bundle models.ConversationBundle) (models.Conversation, error) {
	if bundle.Version != models.BundleVersion {
		return models.Conversation{}, fmt.Errorf("%w: %d", ErrUnsupportedBundleVersion, bundle.Version)
	}
	if bundle.Format != models.BundleFormatConversation {
		return models.Conversation{}, fmt.Errorf("%w: %q", ErrUnknownBundleFormat, bundle.Format)
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		ID:        s.ids.Generate(),
		Title:     bundle.Title,
		FolderID:  bundle.FolderID,
		CreatedAt: bundle.CreatedAt,
		UpdatedAt: now,
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}

	err := retryStorage(ctx, func(ctx context.Context) error {
		return s.convs.SaveConversation(ctx, conv)
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("save imported conversation: %w", err)
	}

	cek, err := s.keychain.GenerateConversationKey()
	if err != nil {
		return models.Conversation{}, fmt.Errorf("generate conversation key: %w", err)
	}
	if err = s.vault.StoreConversationKey(ctx, conv.ID, cek); err != nil {
		return models.Conversation{}, fmt.Errorf("store conversation key: %w", err)
	}

	for _, bm := range bundle.Messages {
		blob, err := s.keychain.Encrypt([]byte(bm.Content), cek)
		if err != nil {
			return models.Conversation{}, fmt.Errorf("re-encrypt imported message: %w", err)
		}

		msg := models.Message{
			ID:             s.ids.Generate(),
			ConversationID: conv.ID,
			Role:           bm.Role,
			Body:           blob,
			Timestamp:      bm.Timestamp,
		}
		err = retryStorage(ctx, func(ctx context.Context) error {
			return s.convs.AppendMessage(ctx, msg)
		})
		if err != nil {
			return models.Conversation{}, fmt.Errorf("append imported message: %w", err)
		}
	}

	return conv, nil
}
