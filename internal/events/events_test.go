package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	evs, err := bus.SubscribeAccountChanged(ctx)
	if err != nil {
		t.Fatalf("SubscribeAccountChanged: %v", err)
	}

	want := AccountEvent{Type: AccountSignedIn, AccountID: "acc-1"}
	if err := bus.PublishAccountChanged(want); err != nil {
		t.Fatalf("PublishAccountChanged: %v", err)
	}

	select {
	case got := <-evs:
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	evs, err := bus.SubscribeAccountChanged(ctx)
	if err != nil {
		t.Fatalf("SubscribeAccountChanged: %v", err)
	}

	cancel()

	select {
	case _, ok := <-evs:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
