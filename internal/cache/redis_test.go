package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs against a real server when FINPLAN_TEST_REDIS_URL is set.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("FINPLAN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FINPLAN_TEST_REDIS_URL not set")
	}
	client, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer client.Close()

	type entry struct{ N int }
	c := NewRedisCache[entry](client, "finplan-test:"+t.Name()+":", time.Minute)
	c.Set("k", entry{N: 7})
	if v, ok := c.Get("k"); !ok || v.N != 7 {
		t.Fatalf("Get = %+v, %v", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d", c.Size())
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("deleted key should miss")
	}
}

func TestOpenRedisRejectsBadURL(t *testing.T) {
	if _, err := OpenRedis(context.Background(), "http://nope"); err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
}
