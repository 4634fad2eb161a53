package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// ClientIDHeader carries HTTPClient.ClientID on every request.
const ClientIDHeader = "X-Streamverse-Client"

// HTTPClient makes REST calls to the Streamverse services.
// A client is immutable; WithToken derives an authenticated copy.
type HTTPClient struct {
	baseURL  string
	token    string
	clientID string
	client   *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:  baseURL,
		clientID: uuid.NewString(),
		client:   &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client that sends token as a bearer credential.
func (c *HTTPClient) WithToken(token string) *HTTPClient {
	cp := *c
	cp.token = token
	return &cp
}

// ClientID identifies this process to the server, which echoes it as the
// origin of the change events it caused.
func (c *HTTPClient) ClientID() string {
	return c.clientID
}

// BaseURL returns the service root this client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Login sends POST /api/auth/login.
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	if creds.Email == "" || creds.Password == "" {
		return LoginResult{}, &Error{Kind: KindValidation, Message: "email and password are required"}
	}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// LoginWithFederatedToken sends POST /api/auth/federated with an opaque
// identity token issued by a third-party provider.
func (c *HTTPClient) LoginWithFederatedToken(ctx context.Context, idToken string) (LoginResult, error) {
	if idToken == "" {
		return LoginResult{}, &Error{Kind: KindValidation, Message: "identity token is required"}
	}
	body := map[string]string{"token": idToken}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/federated", body, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// ListSaved fetches GET /api/watch-later for the authenticated viewer.
func (c *HTTPClient) ListSaved(ctx context.Context) ([]MediaItem, error) {
	var out []MediaItem
	if err := c.do(ctx, http.MethodGet, "/api/watch-later", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveSaved sends DELETE /api/watch-later/{id}.
func (c *HTTPClient) RemoveSaved(ctx context.Context, itemID string) error {
	if itemID == "" {
		return &Error{Kind: KindValidation, Message: "item id is required"}
	}
	return c.do(ctx, http.MethodDelete, "/api/watch-later/"+url.PathEscape(itemID), nil, nil)
}

// AddSaved sends POST /api/watch-later/{id}.
func (c *HTTPClient) AddSaved(ctx context.Context, itemID string) error {
	if itemID == "" {
		return &Error{Kind: KindValidation, Message: "item id is required"}
	}
	return c.do(ctx, http.MethodPost, "/api/watch-later/"+url.PathEscape(itemID), nil, nil)
}

// Browse fetches GET /api/media, the full catalog.
func (c *HTTPClient) Browse(ctx context.Context) ([]MediaItem, error) {
	var out []MediaItem
	if err := c.do(ctx, http.MethodGet, "/api/media", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do performs one request and decodes the envelope. A response that is not a
// readable envelope is a transport failure; success=false is a soft failure
// regardless of the HTTP status.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return transportError(fmt.Errorf("encoding %s %s: %w", method, path, err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return transportError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(ClientIDHeader, c.clientID)
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(fmt.Errorf("%s %s: reading body: %w", method, path, err))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return transportError(fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, truncate(string(raw), 120)))
	}
	if !env.Success {
		return softError(env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return transportError(fmt.Errorf("%s %s: decoding data: %w", method, path, err))
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
