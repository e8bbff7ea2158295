package streamsvc

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/shulehub/shule/core/stream"
)

func recv(t *testing.T, ch <-chan stream.Event) stream.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return stream.Event{}
}

func Test_MemoryBroker_fanOut(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch1, cancel1, err := b.Subscribe(ctx, "content:admin")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer cancel1()
	ch2, cancel2, err := b.Subscribe(ctx, "content:admin")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer cancel2()
	other, cancelOther, err := b.Subscribe(ctx, "cart:u1")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer cancelOther()

	evt := stream.Event{Type: stream.EventContentStatusChanged, EntityID: "c1", NewStatus: "approved"}
	if err := b.Publish(ctx, "content:admin", evt); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	for _, ch := range []<-chan stream.Event{ch1, ch2} {
		got := recv(t, ch)
		if got.EntityID != "c1" || got.NewStatus != "approved" {
			t.Errorf("got event %+v", got)
		}
	}
	select {
	case evt := <-other:
		t.Errorf("cart subscriber got content event %+v", evt)
	default:
	}
}

func Test_MemoryBroker_unsubscribe(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch, cancel, err := b.Subscribe(ctx, "cart:u1")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	// publishing to a torn-down topic is a no-op
	if err := b.Publish(ctx, "cart:u1", stream.Event{Type: stream.EventCartChanged}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
}

func Test_MemoryBroker_unsubscribeReleasesWatcher(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background() // never done

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		_, cancel, err := b.Subscribe(ctx, "cart:u1")
		if err != nil {
			t.Fatalf("Subscribe() failed: %v", err)
		}
		cancel()
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > before {
		t.Errorf("%d goroutine(s) left behind by torn-down subscriptions", n-before)
	}
}

func Test_MemoryBroker_ctxCancelTearsDown(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, _, err := b.Subscribe(ctx, "cart:u1")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	cancelCtx()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after ctx cancellation")
	}
}

func Test_MemoryBroker_slowSubscriberDrops(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	_, cancel, err := b.Subscribe(ctx, "cart:u1")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	defer cancel()

	// publisher never blocks, even with nobody draining
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = b.Publish(ctx, "cart:u1", stream.Event{Type: stream.EventCartChanged})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
