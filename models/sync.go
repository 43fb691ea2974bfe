package models

import "time"

// SyncRecord is the only shape the upstream sync collaborator ever sees:
// identifiers plus a ciphertext/nonce pair. No plaintext, no master key and
// no unwrapped CEK ever crosses this boundary.
type SyncRecord struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Ciphertext     []byte    `json:"ciphertext"`
	Nonce          []byte    `json:"nonce"`
	Timestamp      time.Time `json:"timestamp"`
}

// SyncPushRequest is the upload payload for a batch of records.
type SyncPushRequest struct {
	Records []SyncRecord `json:"records"`
	Length  int          `json:"length"`
}

// SyncPullResponse is the download payload returned by the sync server.
type SyncPullResponse struct {
	Records []SyncRecord `json:"records"`
}
