package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finplan/internal/core"
	"finplan/internal/form"
	"finplan/internal/session"
)

const maxBodyBytes = 1 << 20

// badRequest marks malformed input that never reached validation.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// decodeJSON reads one JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return &badRequest{msg: fmt.Sprintf("request body larger than %d bytes", tooBig.Limit)}
		case errors.Is(err, io.EOF):
			return &badRequest{msg: "request body is empty"}
		default:
			return &badRequest{msg: "malformed JSON: " + err.Error()}
		}
	}
	if dec.More() {
		return &badRequest{msg: "request body must hold a single JSON object"}
	}
	return nil
}

// queryIdentity resolves the acting user from the email query parameter.
func queryIdentity(r *http.Request) (session.Identity, error) {
	return session.Parse(r.URL.Query().Get("email"))
}

// bodyIdentity prefers the email field of a decoded body and falls back to
// the query parameter.
func bodyIdentity(r *http.Request, email string) (session.Identity, error) {
	if strings.TrimSpace(email) == "" {
		return queryIdentity(r)
	}
	return session.Parse(email)
}

// queryMonth parses the month parameter; absent means the default month.
func queryMonth(r *http.Request) (core.Month, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return form.DefaultMonth, nil
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		return "", &badRequest{msg: fmt.Sprintf("unknown month %q", raw)}
	}
	return m, nil
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
