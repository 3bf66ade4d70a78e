package engine

import "testing"

func TestTickAtBeforeStart(t *testing.T) {
	s := NewTickScheduler(1000, 100)
	if got := s.TickAt(500); got != 0 {
		t.Errorf("TickAt before start = %d, want 0", got)
	}
	if got := s.TickAt(1000); got != 0 {
		t.Errorf("TickAt at start = %d, want 0", got)
	}
}

func TestTickAtAdvancesByTickDuration(t *testing.T) {
	s := NewTickScheduler(0, 100)
	tests := []struct {
		nowMs int64
		want  uint32
	}{
		{99, 0},
		{100, 1},
		{250, 2},
		{1000, 10},
	}
	for _, tt := range tests {
		if got := s.TickAt(tt.nowMs); got != tt.want {
			t.Errorf("TickAt(%d) = %d, want %d", tt.nowMs, got, tt.want)
		}
	}
}

func TestDeadlineMsRoundTrips(t *testing.T) {
	s := NewTickScheduler(1000, 50)
	if got := s.DeadlineMs(4); got != 1200 {
		t.Errorf("DeadlineMs(4) = %d, want 1200", got)
	}
}

func TestTicksBehind(t *testing.T) {
	s := NewTickScheduler(0, 100)
	if got := s.TicksBehind(2, 1000); got != 8 {
		t.Errorf("TicksBehind = %d, want 8", got)
	}
	if got := s.TicksBehind(20, 1000); got != 0 {
		t.Errorf("TicksBehind should floor at 0, got %d", got)
	}
}
