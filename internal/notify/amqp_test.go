package notify

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAsyncSubscriberNeverBlocksCaller(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var published []string
	sub := newAsyncSubscriber(8, func(ctx context.Context, n Notification) error {
		<-release
		mu.Lock()
		published = append(published, n.Message)
		mu.Unlock()
		return nil
	})

	// The publish goroutine is stuck; enqueue must still return right away.
	start := time.Now()
	sub.enqueue(Notification{ID: "1", Message: "first"})
	sub.enqueue(Notification{ID: "2", Message: "second"})
	sub.enqueue(Notification{ID: "3", Message: "third"})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("enqueue blocked for %v while broker was stalled", elapsed)
	}

	close(release)
	sub.stop()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "third"}
	if len(published) != len(want) {
		t.Fatalf("published %v, want %v", published, want)
	}
	for i := range want {
		if published[i] != want[i] {
			t.Fatalf("published %v, want %v in order", published, want)
		}
	}
}

func TestAsyncSubscriberDropsWhenBufferFull(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	count := 0
	sub := newAsyncSubscriber(1, func(ctx context.Context, n Notification) error {
		<-release
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	// One in flight, one buffered; the rest must be dropped, not awaited.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			sub.enqueue(Notification{Message: "n"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}

	close(release)
	sub.stop()

	mu.Lock()
	defer mu.Unlock()
	if count > 2 {
		t.Fatalf("published %d notifications, want at most 2 (rest dropped)", count)
	}
	if count == 0 {
		t.Fatal("no notification was published")
	}
}

func TestAsyncSubscriberEnqueueAfterStopIsNoOp(t *testing.T) {
	sub := newAsyncSubscriber(4, func(ctx context.Context, n Notification) error { return nil })
	sub.stop()
	// Must not panic on the closed buffer.
	sub.enqueue(Notification{Message: "late"})
}
