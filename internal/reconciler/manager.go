package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
)

// ChannelSpec is the downstream-facing channel definition a Manager
// implementation creates or updates.
type ChannelSpec struct {
	Name     string
	Number   string
	M3UGroup string
	Profile  string
	StreamURL string
}

// RemoteChannel is one channel as the downstream IPTV manager reports it,
// used to detect orphans/duplicates (§4.7).
type RemoteChannel struct {
	ID   string
	Name string
}

// Manager is the facade over the downstream IPTV manager (e.g. a DVR/xtream
// panel). Implementations must be safe for concurrent use.
type Manager interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (downstreamID string, err error)
	UpdateChannel(ctx context.Context, downstreamID string, spec ChannelSpec) error
	DeleteChannel(ctx context.Context, downstreamID string) error
	ListChannels(ctx context.Context) ([]RemoteChannel, error)
}

// HTTPManager implements Manager against a JWT-authenticated REST API,
// following the credentials-file/login-then-bearer-token pattern the
// teacher's config and httpclient packages already establish.
type HTTPManager struct {
	client   *httpclient.Client
	baseURL  string
	username string
	password string

	mu        sync.Mutex
	token     string
	tokenExp  time.Time
}

// NewHTTPManager builds an HTTPManager. client defaults to a retrying
// client if nil.
func NewHTTPManager(baseURL, username, password string, client *httpclient.Client) *HTTPManager {
	if client == nil {
		client = httpclient.NewClient(60, time.Minute, httpclient.DefaultRetryPolicy)
	}
	return &HTTPManager{
		client: client, baseURL: strings.TrimSuffix(baseURL, "/"),
		username: username, password: password,
	}
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// authHeader returns a valid bearer token, refreshing it if expired or
// about to expire.
func (m *HTTPManager) authHeader(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.tokenExp.Add(-30*time.Second)) {
		return "Bearer " + m.token, nil
	}

	body, err := json.Marshal(map[string]string{"username": m.username, "password": m.password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/login", strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reconciler: login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reconciler: login: unexpected status %d", resp.StatusCode)
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("reconciler: decode login response: %w", err)
	}
	m.token = lr.Token
	if lr.ExpiresIn > 0 {
		m.tokenExp = time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	} else {
		m.tokenExp = time.Now().Add(time.Hour)
	}
	return "Bearer " + m.token, nil
}

func (m *HTTPManager) do(ctx context.Context, method, path string, body any, out any) error {
	auth, err := m.authHeader(ctx)
	if err != nil {
		return err
	}
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reconciler: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (m *HTTPManager) CreateChannel(ctx context.Context, spec ChannelSpec) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := m.do(ctx, http.MethodPost, "/api/channels", spec, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (m *HTTPManager) UpdateChannel(ctx context.Context, downstreamID string, spec ChannelSpec) error {
	return m.do(ctx, http.MethodPut, "/api/channels/"+downstreamID, spec, nil)
}

func (m *HTTPManager) DeleteChannel(ctx context.Context, downstreamID string) error {
	return m.do(ctx, http.MethodDelete, "/api/channels/"+downstreamID, nil, nil)
}

func (m *HTTPManager) ListChannels(ctx context.Context) ([]RemoteChannel, error) {
	var out []RemoteChannel
	if err := m.do(ctx, http.MethodGet, "/api/channels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
