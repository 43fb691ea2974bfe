// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/chatvault/chatvault/internal/adapter"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/models"
)

// syncService uploads encrypted records saved since the last successful
// push. It never decrypts anything: records cross the wire exactly as they
// sit in storage, ciphertext and nonce.
//
// The watermark is the last pushed message ID, not a timestamp: IDs are
// assigned at insertion and sort in insertion order, so records written
// with back-dated timestamps (imported bundles) are still picked up.
type syncService struct {
	convs  store.ConversationRepository
	client adapter.SyncClient
	logger *logger.Logger

	mu         sync.Mutex
	lastPushID string
}

// NewSyncService returns the [SyncService] implementation.
func NewSyncService(convs store.ConversationRepository, client adapter.SyncClient, log *logger.Logger) SyncService {
	return &syncService{convs: convs, client: client, logger: log}
}

func (s *syncService) PushPending(ctx context.Context) error {
	s.mu.Lock()
	after := s.lastPushID
	s.mu.Unlock()

	msgs, err := s.convs.MessagesAfter(ctx, after)
	if err != nil {
		return fmt.Errorf("collect pending messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	records := make([]models.SyncRecord, 0, len(msgs))
	for _, msg := range msgs {
		records = append(records, models.SyncRecord{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Ciphertext:     msg.Body.Ciphertext,
			Nonce:          msg.Body.Nonce,
			Timestamp:      msg.Timestamp,
		})
	}

	if err = s.client.PushRecords(ctx, records); err != nil {
		return fmt.Errorf("push records: %w", err)
	}

	// msgs is in ID order; only a successful push advances the watermark,
	// so a failed batch is retried in full next time.
	s.mu.Lock()
	s.lastPushID = msgs[len(msgs)-1].ID
	s.mu.Unlock()

	s.logger.Info().
		Str("func", "syncService.PushPending").
		Int("records", len(records)).
		Msg("pushed encrypted records")
	return nil
}
