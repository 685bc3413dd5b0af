package bot

import (
	"context"
	"os"
	"testing"
	"time"

	"coffeeshop/internal/domain"
)

func TestStateKey(t *testing.T) {
	if got := stateKey(42); got != "bot_state:42" {
		t.Fatalf("stateKey = %q", got)
	}
	if got := stateKey(-7); got != "bot_state:-7" {
		t.Fatalf("stateKey = %q", got)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	const chat = int64(-990001)
	_ = store.Clear(ctx, chat)

	got, err := store.Get(ctx, chat)
	if err != nil || got != nil {
		t.Fatalf("expected no state, got %+v err=%v", got, err)
	}
	if err := store.Save(ctx, &State{ChatID: chat, Step: stepAwaitingAddress, Fulfillment: domain.FulfillmentDelivery}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = store.Get(ctx, chat)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Step != stepAwaitingAddress || got.Fulfillment != domain.FulfillmentDelivery || got.LastActive.IsZero() {
		t.Fatalf("unexpected state %+v", got)
	}
	if err := store.Clear(ctx, chat); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := store.Get(ctx, chat); got != nil {
		t.Fatalf("state should be gone, got %+v", got)
	}
}
