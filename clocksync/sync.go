package clocksync

import "sort"

// sampleWindow is N in spec.md §4.8: the median of the most recent three
// round-trip measurements becomes the current drift estimate.
const sampleWindow = 3

// Sample is one completed round trip: the client sent client_time=t1, the
// server stamped server_time=t2 at receipt, and the client observed the
// response at t3.
type Sample struct {
	ClientSentMs     int64
	ServerReceivedMs int64
	ClientReceivedMs int64
}

// RTT is t3 - t1.
func (s Sample) RTT() int64 {
	return s.ClientReceivedMs - s.ClientSentMs
}

// Offset is server_time - client_time - rtt/2: the estimated number of
// milliseconds the server's clock leads the client's.
func (s Sample) Offset() int64 {
	return s.ServerReceivedMs - s.ClientSentMs - s.RTT()/2
}

// Estimator accumulates Samples and reports the current drift as the
// median of the most recent sampleWindow measurements (spec.md §4.8). It
// is used client-side only; the server never needs to correct its own
// clock.
type Estimator struct {
	samples []Sample
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Record appends a completed round trip and drops samples older than the
// window.
func (e *Estimator) Record(s Sample) {
	e.samples = append(e.samples, s)
	if len(e.samples) > sampleWindow {
		e.samples = e.samples[len(e.samples)-sampleWindow:]
	}
}

// Drift returns the current estimate: server_now - local_now. Zero until
// at least one sample has been recorded.
func (e *Estimator) Drift() int64 {
	if len(e.samples) == 0 {
		return 0
	}
	offsets := make([]int64, len(e.samples))
	for i, s := range e.samples {
		offsets[i] = s.Offset()
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets[len(offsets)/2]
}

// ServerNow converts a client-observed local_now into the engine's
// drift-corrected notion of server time (spec.md §4.8: "server_now =
// local_now - drift" from the server's point of view, i.e. local_now +
// the client's measured offset toward the server).
func (e *Estimator) ServerNow(localNowMs int64) int64 {
	return localNowMs + e.Drift()
}

// Ready reports whether a full window of samples has landed, so Drift is
// a median over sampleWindow measurements rather than fewer.
func (e *Estimator) Ready() bool {
	return len(e.samples) >= sampleWindow
}
