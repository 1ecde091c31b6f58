package cli

import (
	"context"
	"testing"
	"time"

	"finplan/internal/config"
	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("verbose", "json")
	if logger == nil || logger.Component() != log.ComponentApp {
		t.Fatalf("logger = %+v", logger)
	}
}

func TestOpenSnapshotCacheFallsBackToLRU(t *testing.T) {
	cfg := &config.Config{CacheSize: 10, CacheTTL: time.Minute}
	store, err := OpenSnapshotCache(context.Background(), cfg, SetupLogger("error", "text"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Backend != "lru" || store.Ping != nil {
		t.Errorf("backend = %s, ping set %v", store.Backend, store.Ping != nil)
	}
	store.Snapshots.Put("a@b.co", core.May, insights.Snapshot{Month: core.May})
	if _, ok := store.Snapshots.Get("a@b.co", core.May); !ok {
		t.Error("snapshot not cached")
	}
}

func TestOpenPublisherDisabled(t *testing.T) {
	if p := OpenPublisher(&config.Config{}, SetupLogger("error", "text")); p != nil {
		t.Errorf("publisher = %v, want nil without AMQP_URL", p)
	}
}
