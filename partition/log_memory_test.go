package partition

import (
	"context"
	"testing"
	"time"

	"snaketron.dev/engine"
)

func TestMemoryLogAppendAssignsIncreasingSequence(t *testing.T) {
	l := NewMemoryLog(3)
	ctx := context.Background()

	first, err := l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: 1})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: 1})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Errorf("got sequences %d, %d; want 1, 2", first.Sequence, second.Sequence)
	}
	if first.Partition != 3 || second.Partition != 3 {
		t.Errorf("expected entries stamped with partition 3")
	}
}

func TestMemoryLogTailReportsCount(t *testing.T) {
	l := NewMemoryLog(1)
	ctx := context.Background()
	if tail, _ := l.Tail(ctx); tail != 0 {
		t.Fatalf("expected empty log tail 0, got %d", tail)
	}
	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned})
	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned})
	if tail, _ := l.Tail(ctx); tail != 2 {
		t.Errorf("expected tail 2, got %d", tail)
	}
}

func TestMemoryLogSubscribeDeliversBacklog(t *testing.T) {
	l := NewMemoryLog(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: 5})
	l.Append(ctx, engine.Event{Kind: engine.EventFoodEaten, GameID: 5})

	ch, err := l.Subscribe(ctx, 1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var got []Entry
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out waiting for backlog, got %d entries", len(got))
		}
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("expected backlog in sequence order, got %+v", got)
	}
}

func TestMemoryLogSubscribeStreamsNewAppends(t *testing.T) {
	l := NewMemoryLog(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := l.Subscribe(ctx, 0)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	l.Append(ctx, engine.Event{Kind: engine.EventFoodSpawned, GameID: 7})

	select {
	case e := <-ch:
		if e.GameID != 7 {
			t.Errorf("expected game_id 7, got %d", e.GameID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live append")
	}
}
