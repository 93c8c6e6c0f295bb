package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerDeviceID   = "X-Device-ID"
	maxRemoteFileLen = 1 << 20
)

// HTTPRemote talks to a file endpoint: GET/HEAD/PUT {base}/files/{name}.
// Requests carry the bearer token stored in the OS keyring.
type HTTPRemote struct {
	base       *url.URL
	deviceID   string
	appEnabled bool
	client     *http.Client
	token      func() (string, error)
}

type HTTPOption func(*HTTPRemote)

func WithAppEnabled(enabled bool) HTTPOption {
	return func(h *HTTPRemote) { h.appEnabled = enabled }
}

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPRemote) { h.client = client }
}

// WithTokenSource replaces the keyring lookup
func WithTokenSource(token func() (string, error)) HTTPOption {
	return func(h *HTTPRemote) { h.token = token }
}

func NewHTTPRemote(baseURL, deviceID string, opts ...HTTPOption) (*HTTPRemote, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid cloud url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid cloud url scheme %q", u.Scheme)
	}

	h := &HTTPRemote{
		base:       u,
		deviceID:   deviceID,
		appEnabled: true,
		client:     &http.Client{Timeout: 10 * time.Second},
		token:      LoadToken,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTPRemote) fileURL(name string) string {
	return h.base.JoinPath("files", name).String()
}

func (h *HTTPRemote) do(ctx context.Context, method, name string, body []byte) (*http.Response, error) {
	token, err := h.token()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.fileURL(name), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(headerDeviceID, h.deviceID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, name, err)
	}
	return resp, nil
}

func (h *HTTPRemote) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := h.do(ctx, http.MethodHead, name, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("cloud returned %d for %s", resp.StatusCode, name)
	}
}

func (h *HTTPRemote) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, name, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("remote %q: %w", name, ErrNotFound)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteFileLen))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloud returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (h *HTTPRemote) Write(ctx context.Context, name string, data []byte) (bool, error) {
	resp, err := h.do(ctx, http.MethodPut, name, data)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true, nil
	case http.StatusConflict, http.StatusInsufficientStorage:
		// quota or conflict; the local copy stays authoritative
		return false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("cloud returned %d: %s", resp.StatusCode, string(body))
	}
}

// CloudEnabledForAccount is true once a token has been stored
func (h *HTTPRemote) CloudEnabledForAccount() bool {
	token, err := h.token()
	return err == nil && token != ""
}

func (h *HTTPRemote) CloudEnabledForApp() bool {
	return h.appEnabled
}

// Verify checks the token against the service
func (h *HTTPRemote) Verify(ctx context.Context) error {
	token, err := h.token()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base.JoinPath("auth", "verify").String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(headerDeviceID, h.deviceID)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach cloud: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloud rejected token: status %d", resp.StatusCode)
	}
	return nil
}
