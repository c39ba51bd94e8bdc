package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

type stubSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	block  chan struct{}
	fail   bool
}

func (s *stubSink) InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.fail {
		return errors.New("mongo down")
	}
	return nil
}

func (s *stubSink) snapshot() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

func TestAuditDispatcher_PreservesPerUserOrder(t *testing.T) {
	sink := &stubSink{}
	d := NewAuditDispatcher(4, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	users := []string{"alice", "bob", "carol"}
	for i := 0; i < 30; i++ {
		d.Record(domain.AuditEvent{
			ID:       fmt.Sprintf("%d", i),
			Type:     domain.AuditLoginFailed,
			Username: users[i%len(users)],
		})
	}

	cancel()
	d.Wait()

	events := sink.snapshot()
	if len(events) != 30 {
		t.Fatalf("expected 30 events, got %d", len(events))
	}

	last := map[string]int{}
	for _, e := range events {
		var n int
		fmt.Sscanf(e.ID, "%d", &n)
		if prev, ok := last[e.Username]; ok && n < prev {
			t.Fatalf("out of order for %s: %d after %d", e.Username, n, prev)
		}
		last[e.Username] = n
		if e.At.IsZero() {
			t.Fatalf("timestamp not filled for %s", e.ID)
		}
	}
}

func TestAuditDispatcher_FillsIDAndTime(t *testing.T) {
	sink := &stubSink{}
	d := NewAuditDispatcher(1, sink, zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.Record(domain.AuditEvent{Type: domain.AuditUserRegistered, Username: "alice", Actor: "admin"})
	cancel()
	d.Wait()

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" || !events[0].At.Equal(fixed) || events[0].Actor != "admin" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestAuditDispatcher_RecordNeverBlocks(t *testing.T) {
	sink := &stubSink{block: make(chan struct{})}
	d := NewAuditDispatcher(1, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Record(domain.AuditEvent{Type: domain.AuditLoginFailed, Username: "alice"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a full queue")
	}

	close(sink.block)
	cancel()
	d.Wait()

	if got := len(sink.snapshot()); got > channelBuffer+1 {
		t.Fatalf("expected at most %d written events, got %d", channelBuffer+1, got)
	}
}

func TestAuditDispatcher_SinkErrorsDoNotStopWorker(t *testing.T) {
	sink := &stubSink{fail: true}
	d := NewAuditDispatcher(1, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Record(domain.AuditEvent{Type: domain.AuditLoginFailed, Username: "a"})
	d.Record(domain.AuditEvent{Type: domain.AuditLoginFailed, Username: "a"})
	cancel()
	d.Wait()

	if got := len(sink.snapshot()); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestAuditDispatcher_ShardIndexStable(t *testing.T) {
	d := NewAuditDispatcher(0, &stubSink{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	for _, u := range []string{"", "alice", "dr_smith"} {
		i := d.shardIndex(u)
		if i < 0 || i >= defaultWorkers || i != d.shardIndex(u) {
			t.Fatalf("unstable shard for %q: %d", u, i)
		}
	}
}
