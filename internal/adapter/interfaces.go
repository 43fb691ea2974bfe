// SPDX-License-Identifier: Apache-2.0

// Package adapter provides the transport client for the upstream sync
// collaborator. The collaborator is zero-knowledge: it receives and returns
// ciphertext/nonce pairs plus identifiers, never plaintext, the master key
// or an unwrapped conversation key.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling.
package adapter

import (
	"context"
	"time"

	"github.com/chatvault/chatvault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/sync_client_mock.go -package=mock

// SyncClient defines transport-agnostic communication with the sync server.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
type SyncClient interface {
	// SetToken stores the bearer token attached to all subsequent requests
	// and derives the device ID from the token's subject claim. The claim
	// is read unverified; signature checking is the server's job.
	SetToken(token string) error

	// Token returns the bearer token currently stored in the client, or an
	// empty string if no token has been set yet.
	Token() string

	// DeviceID returns the device identifier parsed from the current
	// token's subject, or an empty string before SetToken.
	DeviceID() string

	// PushRecords uploads a batch of encrypted records. Returns an error
	// if the request fails or the server responds with a non-2xx status.
	PushRecords(ctx context.Context, records []models.SyncRecord) error

	// PullRecords downloads every record the server has seen after the
	// given instant. Returns an error if the request fails or the response
	// cannot be decoded.
	PullRecords(ctx context.Context, since time.Time) ([]models.SyncRecord, error)
}
