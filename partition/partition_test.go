package partition

import "testing"

func TestOfIsDeterministicAndInRange(t *testing.T) {
	for _, gameID := range []uint64{0, 1, 9, 10, 11, 1234567} {
		p := Of(gameID, DefaultPartitionCount)
		if p < 1 || p > DefaultPartitionCount {
			t.Fatalf("Of(%d) = %d, want in [1,%d]", gameID, p, DefaultPartitionCount)
		}
		if again := Of(gameID, DefaultPartitionCount); again != p {
			t.Fatalf("Of(%d) not deterministic: %d vs %d", gameID, p, again)
		}
	}
}

func TestOfMatchesFormula(t *testing.T) {
	cases := map[uint64]int{0: 1, 9: 10, 10: 1, 23: 4}
	for gameID, want := range cases {
		if got := Of(gameID, 10); got != want {
			t.Errorf("Of(%d, 10) = %d, want %d", gameID, got, want)
		}
	}
}

func TestOfDefaultsPartitionCount(t *testing.T) {
	if Of(23, 0) != Of(23, DefaultPartitionCount) {
		t.Error("expected partitionCount <= 0 to fall back to DefaultPartitionCount")
	}
}
