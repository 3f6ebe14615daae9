package ws

import (
	"context"
	"log/slog"

	"mingle-chat/domain/event"
)

// Sink is the delivery endpoint of one connection: a buffered channel
// drained by the connection's single writer goroutine. Fan-out never
// blocks on a slow client; when the buffer is full the event is dropped
// for that connection and the client reconciles through history paging.
type Sink struct {
	outbound chan ServerFrame
	log      *slog.Logger
}

func NewSink(bufferSize int, log *slog.Logger) *Sink {
	return &Sink{outbound: make(chan ServerFrame, bufferSize), log: log}
}

// Consume implements contract.EventSink. It is called by the hub's
// fan-out with room broadcasts and private-channel notices.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, ok := toServerFrame(e)
	if !ok {
		return nil
	}
	select {
	case s.outbound <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("outbound buffer full, dropping event", "room_id", e.Room())
		return nil
	}
}

// Reply queues a request-correlated frame (ack, history, error).
// Unlike events these may not be dropped, so it blocks until the writer
// drains the buffer or the connection dies.
func (s *Sink) Reply(ctx context.Context, frame ServerFrame) error {
	select {
	case s.outbound <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outbound is drained by the connection's write pump.
func (s *Sink) Outbound() <-chan ServerFrame {
	return s.outbound
}
