// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/chatvault/chatvault/models"
)

// HTTPClientConfig configures the REST sync client.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpSyncClient struct {
	client *resty.Client

	mu       sync.RWMutex
	token    string
	deviceID string
}

// NewHTTPSyncClient returns a [SyncClient] speaking the REST sync protocol.
func NewHTTPSyncClient(cfg HTTPClientConfig) SyncClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpSyncClient{client: cli}
}

func (h *httpSyncClient) SetToken(token string) error {
	token = strings.TrimSpace(token)
	deviceID, err := parseDeviceIDFromJWT(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.deviceID = deviceID
	return nil
}

func (h *httpSyncClient) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpSyncClient) DeviceID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deviceID
}

func (h *httpSyncClient) PushRecords(ctx context.Context, records []models.SyncRecord) error {
	req := models.SyncPushRequest{Records: records, Length: len(records)}

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/push")
	if err != nil {
		return fmt.Errorf("push records request: %w", err)
	}

	return mapHTTPError(resp)
}

func (h *httpSyncClient) PullRecords(ctx context.Context, since time.Time) ([]models.SyncRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("since", since.UTC().Format(time.RFC3339Nano)).
		Get("/api/sync/pull")
	if err != nil {
		return nil, fmt.Errorf("pull records request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var pull models.SyncPullResponse
	if err = json.Unmarshal(resp.Body(), &pull); err != nil {
		return nil, fmt.Errorf("decode pull response: %w", err)
	}

	return pull.Records, nil
}

func (h *httpSyncClient) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)

	h.mu.RLock()
	token, deviceID := h.token, h.deviceID
	h.mu.RUnlock()

	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if deviceID != "" {
		req.SetHeader("X-Device-ID", deviceID)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrServerFault, body)
	default:
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
	}
}

func parseDeviceIDFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("empty token subject")
	}
	return sub, nil
}
