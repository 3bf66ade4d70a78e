package engine

import "testing"

func TestNewSnakeLength(t *testing.T) {
	tests := []struct {
		name   string
		dir    Direction
		length int
		want   int
	}{
		{"single cell", Right, 1, 1},
		{"length three", Right, 3, 3},
		{"length ten", Up, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnake(Position{X: 10, Y: 10}, tt.dir, tt.length)
			if got := s.Length(); got != tt.want {
				t.Errorf("Length() = %d, want %d", got, tt.want)
			}
			if got := len(s.Expand()); got != tt.want {
				t.Errorf("len(Expand()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTurnRejectsReversal(t *testing.T) {
	s := NewSnake(Position{X: 5, Y: 5}, Right, 3)
	if s.turn(Left) {
		t.Error("expected reversing directly into the opposite heading to be rejected")
	}
	if s.Direction != Right {
		t.Errorf("direction changed despite rejected turn: %s", s.Direction)
	}
}

func TestTurnRejectsDeadSnake(t *testing.T) {
	s := NewSnake(Position{X: 5, Y: 5}, Right, 3)
	s.IsAlive = false
	if s.turn(Up) {
		t.Error("expected a dead snake's turn command to be rejected")
	}
}

func TestTurnSameDirectionIsNoop(t *testing.T) {
	s := NewSnake(Position{X: 5, Y: 5}, Right, 3)
	bodyLen := len(s.Body)
	if s.turn(Right) {
		t.Error("expected turning toward the current heading to report no change")
	}
	if len(s.Body) != bodyLen {
		t.Errorf("expected body length unchanged, got %d want %d", len(s.Body), bodyLen)
	}
}

func TestExpandWalksEachSegment(t *testing.T) {
	s := Snake{Body: []Position{{X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0}}, Direction: Left, IsAlive: true}
	cells := s.Expand()
	want := []Position{{2, 2}, {2, 1}, {2, 0}, {1, 0}, {0, 0}}
	if len(cells) != len(want) {
		t.Fatalf("got %v, want %v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d: got %v, want %v", i, cells[i], want[i])
		}
	}
}
