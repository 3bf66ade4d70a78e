package engine

import "testing"

func TestEffectiveTickUsesSchedulingDelay(t *testing.T) {
	q := NewCommandQueue(2)
	cmd := CommandMessage{ClientID: CommandID{Tick: 5, UserID: 1, Sequence: 0}}

	tests := []struct {
		name        string
		currentTick uint32
		want        uint32
	}{
		{"command tick already past the floor", 1, 5},
		{"scheduling delay pushes it later", 10, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.EffectiveTick(cmd, tt.currentTick); got != tt.want {
				t.Errorf("EffectiveTick() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubmitLocalDeduplicatesByClientID(t *testing.T) {
	q := NewCommandQueue(0)
	msg := q.SubmitLocal(1, 0, 10, TurnCommand(Up))
	q.AcceptServer(msg, 10) // server echo of the same command

	due := q.Drain(10)
	if len(due) != 1 {
		t.Errorf("expected exactly one queued command after dedup, got %d", len(due))
	}
}

func TestDrainOnlyReturnsExactTick(t *testing.T) {
	q := NewCommandQueue(0)
	q.SubmitLocal(1, 0, 5, TurnCommand(Up))
	q.SubmitLocal(1, 0, 6, TurnCommand(Down))

	if got := q.Drain(5); len(got) != 1 {
		t.Errorf("expected 1 command at tick 5, got %d", len(got))
	}
	if got := q.Drain(5); len(got) != 0 {
		t.Errorf("expected tick 5 to be empty after draining, got %d", len(got))
	}
	if got := q.Drain(6); len(got) != 1 {
		t.Errorf("expected 1 command at tick 6, got %d", len(got))
	}
}

func TestDiscardUpToDropsOldCommands(t *testing.T) {
	q := NewCommandQueue(0)
	q.SubmitLocal(1, 0, 3, TurnCommand(Up))
	q.SubmitLocal(1, 0, 7, TurnCommand(Down))

	q.DiscardUpTo(5)

	if got := q.Drain(3); len(got) != 0 {
		t.Errorf("expected tick 3 discarded, got %d commands", len(got))
	}
	if got := q.Drain(7); len(got) != 1 {
		t.Errorf("expected tick 7 to survive discard, got %d", len(got))
	}
}

func TestLenCountsAcrossAllTicks(t *testing.T) {
	q := NewCommandQueue(0)
	if q.Len() != 0 {
		t.Errorf("expected empty queue to have Len 0, got %d", q.Len())
	}
	q.SubmitLocal(1, 0, 5, TurnCommand(Up))
	q.SubmitLocal(1, 0, 6, TurnCommand(Down))
	if q.Len() != 2 {
		t.Errorf("expected Len 2 across two ticks, got %d", q.Len())
	}
	q.Drain(5)
	if q.Len() != 1 {
		t.Errorf("expected Len 1 after draining one tick, got %d", q.Len())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	q := NewCommandQueue(0)
	q.SubmitLocal(1, 0, 5, TurnCommand(Up))

	clone := q.Clone()
	clone.SubmitLocal(1, 0, 6, TurnCommand(Down))

	if got := q.Drain(6); len(got) != 0 {
		t.Errorf("expected original queue unaffected by clone mutation, got %d", len(got))
	}
	if got := clone.Drain(6); len(got) != 1 {
		t.Errorf("expected clone to have its own command at tick 6, got %d", len(got))
	}
}
