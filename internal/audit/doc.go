// Package audit relays security events from the engine to a [Sink] off the
// request path.
//
// A [Dispatcher] owns a bounded queue and a single delivery goroutine. When
// the queue is full it either drops the event and counts it, or blocks the
// caller until space frees up or the caller's context ends. [Dispatcher.Close]
// drains what is queued before returning.
//
// Sinks provided here write to a channel, to an io.Writer as JSON lines, or to
// a zap logger. Which events exist is decided by the engine, not this package,
// and nothing here imports authcore.
package audit
