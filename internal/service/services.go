package service

import (
	"github.com/chatvault/chatvault/internal/adapter"
	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/store"
)

type Services struct {
	Conversations ConversationStore
	Sync          SyncService
	SyncJob       SyncJob
}

func NewServices(storages *store.Storages, kv KeyVault, keychain crypto.KeyChain, client adapter.SyncClient, log *logger.Logger) *Services {
	convSvc := NewConversationService(storages.Conversations, kv, keychain, log)
	syncSvc := NewSyncService(storages.Conversations, client, log)

	return &Services{
		Conversations: convSvc,
		Sync:          syncSvc,
		SyncJob:       NewSyncJob(syncSvc, log),
	}
}
