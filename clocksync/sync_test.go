package clocksync

import "testing"

func TestSampleOffsetAndRTT(t *testing.T) {
	// Client sends at t1=1000, server stamps receipt at t2=1050 (server
	// leads by roughly 50ms), client observes reply at t3=1020 (20ms RTT).
	s := Sample{ClientSentMs: 1000, ServerReceivedMs: 1050, ClientReceivedMs: 1020}
	if got := s.RTT(); got != 20 {
		t.Errorf("RTT() = %d, want 20", got)
	}
	if got := s.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestDriftIsMedianOfWindow(t *testing.T) {
	e := NewEstimator()
	offsets := []int64{10, 50, 30, 1000, 20} // last 3 are {30,1000,20} -> median 30
	for _, off := range offsets {
		e.Record(Sample{ClientSentMs: 0, ServerReceivedMs: off, ClientReceivedMs: 0})
	}
	if got := e.Drift(); got != 30 {
		t.Errorf("Drift() = %d, want 30", got)
	}
}

func TestDriftZeroBeforeAnySample(t *testing.T) {
	e := NewEstimator()
	if got := e.Drift(); got != 0 {
		t.Errorf("Drift() before any sample = %d, want 0", got)
	}
	if e.Ready() {
		t.Error("expected Ready() to be false with no samples")
	}
}

func TestReadyAfterWindowFills(t *testing.T) {
	e := NewEstimator()
	for i := 0; i < sampleWindow; i++ {
		e.Record(Sample{})
	}
	if !e.Ready() {
		t.Error("expected Ready() to be true once the sample window fills")
	}
}

func TestServerNowAppliesDrift(t *testing.T) {
	e := NewEstimator()
	e.Record(Sample{ClientSentMs: 0, ServerReceivedMs: 100, ClientReceivedMs: 0})
	if got := e.ServerNow(5000); got != 5100 {
		t.Errorf("ServerNow() = %d, want 5100", got)
	}
}
