package canary

import "sync/atomic"

// Metrics tracks channel and introduction statistics. Implementations
// must be safe for concurrent use: Increment* calls come from whichever
// goroutine owns a given Channel half, Get* calls from an observer on a
// different goroutine.
type Metrics interface {
	IncrementSend()
	IncrementReceive()
	IncrementBytesSent(n int64)
	IncrementBytesReceived(n int64)
	IncrementIntroductions()
	IncrementNotFound()

	GetSendCount() int64
	GetReceiveCount() int64
	GetBytesSent() int64
	GetBytesReceived() int64
	GetIntroductionCount() int64
	GetNotFoundCount() int64
}

// DefaultMetrics implements Metrics with atomic counters, adapted from
// the teacher's atomic-counter DefaultMetrics (grounded on aznet's own
// metrics.go), repointed at channel records and introduction outcomes
// instead of blob/queue/table transactions.
type DefaultMetrics struct {
	sends         int64
	receives      int64
	bytesSent     int64
	bytesReceived int64
	introductions int64
	notFound      int64
}

// NewDefaultMetrics creates a new DefaultMetrics instance.
func NewDefaultMetrics() *DefaultMetrics { return &DefaultMetrics{} }

func (m *DefaultMetrics) IncrementSend()               { atomic.AddInt64(&m.sends, 1) }
func (m *DefaultMetrics) IncrementReceive()             { atomic.AddInt64(&m.receives, 1) }
func (m *DefaultMetrics) IncrementBytesSent(n int64)     { atomic.AddInt64(&m.bytesSent, n) }
func (m *DefaultMetrics) IncrementBytesReceived(n int64) { atomic.AddInt64(&m.bytesReceived, n) }
func (m *DefaultMetrics) IncrementIntroductions()        { atomic.AddInt64(&m.introductions, 1) }
func (m *DefaultMetrics) IncrementNotFound()             { atomic.AddInt64(&m.notFound, 1) }

func (m *DefaultMetrics) GetSendCount() int64         { return atomic.LoadInt64(&m.sends) }
func (m *DefaultMetrics) GetReceiveCount() int64      { return atomic.LoadInt64(&m.receives) }
func (m *DefaultMetrics) GetBytesSent() int64         { return atomic.LoadInt64(&m.bytesSent) }
func (m *DefaultMetrics) GetBytesReceived() int64     { return atomic.LoadInt64(&m.bytesReceived) }
func (m *DefaultMetrics) GetIntroductionCount() int64 { return atomic.LoadInt64(&m.introductions) }
func (m *DefaultMetrics) GetNotFoundCount() int64     { return atomic.LoadInt64(&m.notFound) }
