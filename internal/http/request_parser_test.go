package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/remote"
	"finplan/internal/services"
	"finplan/internal/session"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"object", `{"email":"a@b.co"}`, ""},
		{"empty", ``, "empty"},
		{"garbage", `{"email":`, "malformed JSON"},
		{"two objects", `{} {}`, "single JSON object"},
		{"too large", `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "larger than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst struct{ Email string }
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if statusFor(err) != http.StatusBadRequest {
				t.Errorf("status = %d", statusFor(err))
			}
		})
	}
}

func TestBodyIdentityFallsBackToQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/?email=q@example.com", nil)
	if id, err := bodyIdentity(r, ""); err != nil || id != "q@example.com" {
		t.Errorf("fallback = %q, %v", id, err)
	}
	if id, err := bodyIdentity(r, "B@Example.com"); err != nil || id != "b@example.com" {
		t.Errorf("body = %q, %v", id, err)
	}
}

func TestQueryMonth(t *testing.T) {
	tests := []struct {
		query string
		want  core.Month
		ok    bool
	}{
		{"", core.March, true},
		{"month=december", core.December, true},
		{"month=13", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/insights?"+tt.query, nil)
		got, err := queryMonth(r)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("%q: got %q, %v", tt.query, got, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Coffee\x00\x07 beans\t "); got != "Coffee beans" {
		t.Errorf("got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrNoSession, http.StatusUnauthorized},
		{records.Invalid(core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{records.ErrNotFound, http.StatusNotFound},
		{records.ErrSetupIncomplete, http.StatusNotFound},
		{services.ErrAdvisorDisabled, http.StatusServiceUnavailable},
		{&remote.FetchError{Op: "fetch", Status: 404}, http.StatusNotFound},
		{remote.ErrDataShape, http.StatusBadGateway},
		{records.Persistence("insert", errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
