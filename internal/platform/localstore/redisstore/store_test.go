package redisstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/redis/go-redis/v9"
)

type fakeClient struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (c *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (c *fakeClient) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return redis.NewStatusResult("", c.setErr)
	}
	c.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := c.data[key]; ok {
			delete(c.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func TestStoreRoundTripUnderPrefix(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	store := New(client, WithPrefix("test"))
	ctx := context.Background()

	if err := store.Put(ctx, "default/bloomyUser", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := client.data["test:default/bloomyUser"]; !ok {
		t.Fatalf("expected prefixed key, have %v", client.data)
	}
	got, err := store.Get(ctx, "default/bloomyUser")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"id":"1"}` {
		t.Fatalf("value = %s", got)
	}
	if err := store.Delete(ctx, "default/bloomyUser"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "default/bloomyUser"); !errors.Is(err, localstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreMapsOOMToQuota(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.setErr = errors.New("OOM command not allowed when used memory > 'maxmemory'")
	store := New(client)

	err := store.Put(context.Background(), "k", []byte("v"))
	if !errors.Is(err, localstore.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestNilStoreUnavailable(t *testing.T) {
	t.Parallel()

	store := New(nil)
	if _, err := store.Get(context.Background(), "k"); !errors.Is(err, localstore.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDialIntegration(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("BLOOMY_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("BLOOMY_TEST_REDIS_ADDR not set")
	}
	store, client, err := Dial(context.Background(), addr, "", 0, WithPrefix("bloomy-test"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ls := localstore.New(store)
	if !ls.Available(context.Background()) {
		t.Fatal("expected redis backend available")
	}
}
