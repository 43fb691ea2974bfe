// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/models"
)

func signedTestToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newTestClient(t *testing.T, serverURL string) *httpSyncClient {
	t.Helper()
	c := NewHTTPSyncClient(HTTPClientConfig{BaseURL: serverURL})
	return c.(*httpSyncClient)
}

func TestSetToken_ParsesDeviceID(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	require.NoError(t, c.SetToken(signedTestToken(t, "device-42")))
	assert.Equal(t, "device-42", c.DeviceID())
	assert.NotEmpty(t, c.Token())
}

func TestSetToken_Garbage(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	err := c.SetToken("not-a-jwt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPushRecords_Success(t *testing.T) {
	records := []models.SyncRecord{{
		ConversationID: "c1",
		MessageID:      "m1",
		Ciphertext:     []byte{0x01, 0x02},
		Nonce:          []byte{0x03},
		Timestamp:      time.Now().UTC(),
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sync/push", r.URL.Path)
		assert.Equal(t, "device-1", r.Header.Get("X-Device-ID"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		var req models.SyncPushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.Length)
		assert.Equal(t, "m1", req.Records[0].MessageID)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.SetToken(signedTestToken(t, "device-1")))

	require.NoError(t, c.PushRecords(context.Background(), records))
}

func TestPushRecords_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.PushRecords(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPushRecords_ServerFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.PushRecords(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerFault)
}

func TestPullRecords_Success(t *testing.T) {
	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sync/pull", r.URL.Path)
		assert.Equal(t, since.Format(time.RFC3339Nano), r.URL.Query().Get("since"))

		resp := models.SyncPullResponse{Records: []models.SyncRecord{
			{ConversationID: "c1", MessageID: "m1", Ciphertext: []byte{0xaa}, Nonce: []byte{0xbb}},
		}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.PullRecords(context.Background(), since)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].MessageID)
}

func TestPullRecords_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.PullRecords(context.Background(), time.Now())

	require.Error(t, err)
}
