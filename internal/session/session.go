// Package session resolves which user a request acts for.
//
// Identity is always passed explicitly to the record collaborators; nothing
// in the repository reads it from ambient global state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

// Identity is the user's e-mail address as issued by the session service.
type Identity string

// ErrNoSession means no user could be identified; the caller should prompt a re-login.
var ErrNoSession = errors.New("no user session, please log in again")

// Parse trims and checks raw. An empty value yields ErrNoSession.
func Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoSession
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: malformed identity %q", ErrNoSession, raw)
	}
	return Identity(strings.ToLower(raw)), nil
}

func (id Identity) String() string { return string(id) }

// Client asks the session service who is logged in.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the service at baseURL. A nil httpClient
// gets a client with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Current returns the logged-in identity. The given cookies are forwarded
// to the session service.
func (c *Client) Current(ctx context.Context, cookies ...*http.Cookie) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/session", nil)
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session service returned %d", resp.StatusCode)
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return Parse(body.Email)
}
