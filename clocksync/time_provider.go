// Package clocksync implements the NTP-style client/server offset
// estimation of spec.md §4.8: the client times a round trip to the
// server, and the median of recent samples becomes the drift correction
// applied to its local clock.
package clocksync

import "time"

// TimeProvider is an injectable wall-clock source, so a caller can supply
// a fake clock in tests instead of sleeping (grounded on the teacher
// corpus's TimeProvider pattern). The Estimator itself reads no clock.
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider is the production TimeProvider backed by the real
// system clock.
type MonotonicTimeProvider struct{}

func NewMonotonicTimeProvider() *MonotonicTimeProvider { return &MonotonicTimeProvider{} }

func (p *MonotonicTimeProvider) Now() time.Time { return time.Now() }

// NowMs reads tp as epoch milliseconds, the unit the engine and partition
// packages take their time parameters in.
func NowMs(tp TimeProvider) int64 {
	return tp.Now().UnixMilli()
}
