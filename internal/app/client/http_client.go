package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"daylog/internal/app/client/config"
	"daylog/internal/domain/sync"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   cfg.APIURL,
		userAgent: "daylog-client/1.0",
	}, nil
}

// SetToken installs the bearer token used for every subsequent request.
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// SetBaseURL repoints the client at a new server, used when the config
// file's api_url setting is live-reloaded.
func (h *httpClient) SetBaseURL(url string) {
	h.baseURL = url
}

func (h *httpClient) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) ExchangeGoogle(ctx context.Context, idToken string) (string, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/auth/google", map[string]string{"idToken": idToken})
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return "", err
	}

	h.SetToken(out.Token)
	return out.Token, nil
}

func (h *httpClient) ExchangeInternal(ctx context.Context, secret, providerID, email, name, image string) (string, error) {
	body := map[string]string{
		"secret":     secret,
		"providerId": providerID,
		"email":      email,
		"name":       name,
		"image":      image,
	}

	resp, err := h.doRequest(ctx, http.MethodPost, "/auth/internal", body)
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return "", err
	}

	h.SetToken(out.Token)
	return out.Token, nil
}

func (h *httpClient) Me(ctx context.Context) (id int, email, name string, err error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return 0, "", "", err
	}

	var out struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return 0, "", "", err
	}

	return out.ID, out.Email, out.Name, nil
}

// Push sends the local unsynced changes in one request, per spec.md §4.2.
func (h *httpClient) Push(ctx context.Context, payload sync.PushPayload) (*sync.PushResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/sync/push", payload)
	if err != nil {
		return nil, err
	}

	var out sync.PushResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pull fetches everything server-side updated after since.
func (h *httpClient) Pull(ctx context.Context, since time.Time) (*sync.PullResponse, error) {
	path := "/sync/pull?since=" + since.UTC().Format(time.RFC3339Nano)
	resp, err := h.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out sync.PullResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Full fetches a complete snapshot, used when there is no local sync cursor
// yet (first run); see SyncService.pull.
func (h *httpClient) Full(ctx context.Context) (*sync.FullResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/sync/full", nil)
	if err != nil {
		return nil, err
	}

	var out sync.FullResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) ResolveConflict(ctx context.Context, conflictID, resolution string) error {
	req := sync.ResolveConflictRequest{ConflictID: conflictID, Resolution: resolution}
	resp, err := h.doRequest(ctx, http.MethodPost, "/sync/resolve-conflict", req)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) ListDevices(ctx context.Context) ([]sync.DeviceWire, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/sync/devices", nil)
	if err != nil {
		return nil, err
	}

	var out []sync.DeviceWire
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *httpClient) RemoveDevice(ctx context.Context, deviceID string) error {
	resp, err := h.doRequest(ctx, http.MethodDelete, "/sync/devices/"+deviceID, nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	h.log.Debug("received response", "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Detail != "" || errResp.Title != "") {
			return fmt.Errorf("server error (%d): %s %s", resp.StatusCode, errResp.Title, errResp.Detail)
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
