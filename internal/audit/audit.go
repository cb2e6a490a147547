package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event is one security-relevant outcome. Zero-valued optional fields are
// left out of every encoding.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AccountID int64             `json:"account_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MarshalLogObject flattens the event into zap fields. Metadata keys are
// prefixed with "meta.".
func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("timestamp", e.Timestamp)
	enc.AddBool("success", e.Success)
	if e.AccountID != 0 {
		enc.AddInt64("account_id", e.AccountID)
	}
	for key, val := range map[string]string{"email": e.Email, "ip": e.IP, "error": e.Error} {
		if val != "" {
			enc.AddString(key, val)
		}
	}
	for k, v := range e.Metadata {
		enc.AddString("meta."+k, v)
	}
	return nil
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a reader through a buffered channel. Emit
// blocks while the buffer is full unless ctx ends first.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink returns a ChannelSink holding up to buffer events, at least one.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.ch <- event:
	case <-ctx.Done():
	}
}

// Events is the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// JSONWriterSink writes one JSON object per line. Encoding errors are dropped.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriterSink writes to w. A nil w discards everything.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// ZapSink logs each event under the "audit" logger, named by its event
// type. Failures are logged at warn level.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink logs through logger, or nowhere when logger is nil.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	level := zapcore.InfoLevel
	if !event.Success {
		level = zapcore.WarnLevel
	}
	s.logger.Log(level, event.EventType, zap.Inline(event))
}
