package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"finplan/internal/config"
	apphttp "finplan/internal/http"
	"finplan/internal/log"
	"finplan/internal/records/memory"
	"finplan/internal/services"
)

func newAPI(t *testing.T) *config.Config {
	t.Helper()
	srv := apphttp.NewServer(":0", apphttp.Options{
		Finance: services.NewFinanceService(memory.New(), nil, nil),
		Logger:  log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return &config.Config{Port: "8081", RemoteAPIURL: ts.URL}
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), cfg, args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestRunUsage(t *testing.T) {
	cfg := &config.Config{Port: "8081"}
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"explode"}, 2},
		{"help", []string{"help"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, cfg, tt.args...)
			if code != tt.code {
				t.Fatalf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(out+errOut, "Commands:") {
				t.Errorf("usage not printed: %q", out+errOut)
			}
		})
	}
}

func TestRunWithoutIdentity(t *testing.T) {
	code, _, errOut := runCLI(t, &config.Config{Port: "8081"}, "session")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "log in again") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestSessionPrefersFlag(t *testing.T) {
	cfg := &config.Config{Port: "8081", SessionDevEmail: "dev@example.com"}

	_, out, _ := runCLI(t, cfg, "session")
	if strings.TrimSpace(out) != "dev@example.com" {
		t.Errorf("dev session = %q", out)
	}
	_, out, _ = runCLI(t, cfg, "-email", "Alice@Example.com", "session")
	if strings.TrimSpace(out) != "alice@example.com" {
		t.Errorf("flag session = %q", out)
	}
}

func TestFixedRowsFlag(t *testing.T) {
	var rows fixedRows
	if err := rows.Set("Rent = 1200"); err != nil {
		t.Fatal(err)
	}
	if err := rows.Set("Car loan=250.50"); err != nil {
		t.Fatal(err)
	}
	if err := rows.Set("nonsense"); err == nil {
		t.Error("expected error for a value without '='")
	}
	if len(rows) != 2 || rows[0].Category != "Rent" || rows[0].Amount != "1200" || rows[1].Category != "Car loan" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCLIFlow(t *testing.T) {
	cfg := newAPI(t)
	as := []string{"-email", "alice@example.com"}
	cmd := func(args ...string) (int, string, string) {
		return runCLI(t, cfg, append(append([]string{}, as...), args...)...)
	}

	if code, out, _ := cmd("setup"); code != 0 || !strings.Contains(out, "No setup saved yet") {
		t.Fatalf("setup before configure: %d %q", code, out)
	}
	if code, out, _ := cmd("insights"); code != 0 || !strings.Contains(out, "complete your setup") {
		t.Fatalf("insights before configure: %d %q", code, out)
	}

	code, _, errOut := cmd("configure", "-income", "abc", "-goal", "500", "-fixed", "Rent=1200")
	if code != 1 || !strings.Contains(errOut, "income") {
		t.Fatalf("invalid configure: %d %q", code, errOut)
	}

	code, out, errOut := cmd("configure", "-income", "5000", "-goal", "500", "-fixed", "Rent=1200", "-fixed", "Internet=50")
	if code != 0 || !strings.Contains(out, "Setup saved") {
		t.Fatalf("configure: %d %q %q", code, out, errOut)
	}
	_, out, _ = cmd("setup")
	for _, want := range []string{"Rent", "Internet", "5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("setup output missing %q:\n%s", want, out)
		}
	}

	code, out, errOut = cmd("add", "-desc", "Groceries", "-amount", "120.50", "-category", "groceries", "-month", "March")
	if code != 0 || !strings.Contains(out, "Expense recorded") {
		t.Fatalf("add: %d %q %q", code, out, errOut)
	}
	if code, _, errOut = cmd("add", "-desc", "", "-amount", "-3", "-category", "groceries"); code != 1 || !strings.Contains(errOut, "please fix") {
		t.Fatalf("invalid add: %d %q", code, errOut)
	}

	_, out, _ = cmd("list")
	if !strings.Contains(out, "Groceries") || !strings.Contains(out, "Total") {
		t.Errorf("list output:\n%s", out)
	}

	_, out, _ = cmd("insights", "-month", "March")
	if !strings.Contains(out, "Groceries") || !strings.Contains(out, "100%") {
		t.Errorf("insights output:\n%s", out)
	}
	if code, _, _ = cmd("insights", "-month", "Smarch"); code != 1 {
		t.Errorf("unknown month exit code = %d, want 1", code)
	}

	_, out, _ = cmd("dashboard")
	if !strings.Contains(out, "March") || !strings.Contains(out, "January") {
		t.Errorf("dashboard output:\n%s", out)
	}

	if code, _, errOut = cmd("advice"); code != 1 {
		t.Errorf("advice without advisor: %d %q", code, errOut)
	}

	if code, _, _ = cmd("delete"); code != 1 {
		t.Errorf("delete without id exit code = %d", code)
	}
}
