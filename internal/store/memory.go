package store

import (
	"context"
	"sort"
	"sync"

	"github.com/chatvault/chatvault/models"
)

// memoryKeyRecordRepository is the map-backed [KeyRecordRepository] used for
// in-memory runs and tests. Same contract as the SQLite implementation.
type memoryKeyRecordRepository struct {
	mu     sync.RWMutex
	params *models.VaultParams
	keys   map[string]models.WrappedKey
}

// NewMemoryKeyRecordRepository returns an empty in-memory
// [KeyRecordRepository].
func NewMemoryKeyRecordRepository() KeyRecordRepository {
	return &memoryKeyRecordRepository{keys: make(map[string]models.WrappedKey)}
}

func (m *memoryKeyRecordRepository) GetVaultParams(_ context.Context) (models.VaultParams, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.params == nil {
		return models.VaultParams{}, ErrVaultParamsNotFound
	}
	return *m.params, nil
}

func (m *memoryKeyRecordRepository) SaveVaultParams(_ context.Context, params models.VaultParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = &params
	return nil
}

func (m *memoryKeyRecordRepository) DeleteVaultParams(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = nil
	return nil
}

func (m *memoryKeyRecordRepository) GetWrappedKey(_ context.Context, conversationID string) (models.WrappedKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[conversationID]
	if !ok {
		return models.WrappedKey{}, ErrWrappedKeyNotFound
	}
	return key, nil
}

func (m *memoryKeyRecordRepository) SaveWrappedKey(_ context.Context, key models.WrappedKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.ConversationID] = key
	return nil
}

func (m *memoryKeyRecordRepository) DeleteWrappedKey(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, conversationID)
	return nil
}

func (m *memoryKeyRecordRepository) DeleteAllWrappedKeys(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = make(map[string]models.WrappedKey)
	return nil
}

// memoryConversationRepository is the map-backed [ConversationRepository].
// It shares the wrapped-key map with its sibling key repository so that
// delete-as-a-unit semantics hold across both.
type memoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
	keyRepo       *memoryKeyRecordRepository
}

// NewMemoryConversationRepository returns an empty in-memory
// [ConversationRepository]. When keys is the repository returned by
// [NewMemoryKeyRecordRepository], conversation deletion also removes the
// wrapped key, mirroring the SQLite transaction.
func NewMemoryConversationRepository(keys KeyRecordRepository) ConversationRepository {
	repo := &memoryConversationRepository{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
	}
	if kr, ok := keys.(*memoryKeyRecordRepository); ok {
		repo.keyRepo = kr
	}
	return repo
}

func (m *memoryConversationRepository) SaveConversation(_ context.Context, conv models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.Messages = nil
	m.conversations[conv.ID] = conv
	return nil
}

func (m *memoryConversationRepository) GetConversation(_ context.Context, id string) (models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	conv.Messages = append([]models.Message(nil), m.messages[id]...)
	return conv, nil
}

func (m *memoryConversationRepository) ListPersistent(_ context.Context) ([]models.ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []models.ConversationSummary
	for id, conv := range m.conversations {
		if conv.IsTemporary {
			continue
		}
		list = append(list, models.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			FolderID:     conv.FolderID,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(m.messages[id]),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (m *memoryConversationRepository) AppendMessage(_ context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}

	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	conv.UpdatedAt = msg.Timestamp
	m.conversations[msg.ConversationID] = conv
	return nil
}

func (m *memoryConversationRepository) MessagesAfter(_ context.Context, afterID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var msgs []models.Message
	for _, batch := range m.messages {
		for _, msg := range batch {
			if msg.ID > afterID {
				msgs = append(msgs, msg)
			}
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ID < msgs[j].ID
	})
	return msgs, nil
}

func (m *memoryConversationRepository) UpdateTitle(_ context.Context, id, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return false, nil
	}
	conv.Title = title
	m.conversations[id] = conv
	return true, nil
}

func (m *memoryConversationRepository) UpdateFolder(_ context.Context, id string, folderID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return false, nil
	}
	conv.FolderID = folderID
	m.conversations[id] = conv
	return true, nil
}

func (m *memoryConversationRepository) SetPersistent(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return false, nil
	}
	conv.IsTemporary = false
	m.conversations[id] = conv
	return true, nil
}

func (m *memoryConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrConversationNotFound
	}

	delete(m.conversations, id)
	delete(m.messages, id)
	if m.keyRepo != nil {
		_ = m.keyRepo.DeleteWrappedKey(ctx, id)
	}
	return nil
}

func (m *memoryConversationRepository) DeleteAllConversations(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations = make(map[string]models.Conversation)
	m.messages = make(map[string][]models.Message)
	if m.keyRepo != nil {
		_ = m.keyRepo.DeleteAllWrappedKeys(ctx)
	}
	return nil
}
