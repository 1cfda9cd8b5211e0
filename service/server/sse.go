package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/waveportal/service/metrics"
	natspkg "github.com/brojonat/waveportal/service/nats"
)

// SSEPublisher manages Server-Sent Events connections for wave streaming.
type SSEPublisher struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	contract string
	logger   *slog.Logger
}

// NewSSEPublisher creates a new SSE publisher that subscribes to NATS internally.
// Only waves relayed for contract are streamed.
func NewSSEPublisher(natsURL, contract string, logger *slog.Logger) (*SSEPublisher, error) {
	nc, err := natspkg.Connect(natsURL, "waveportal-sse-publisher")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Consumers can only be created on an existing stream.
	if err := natspkg.EnsureStream(context.Background(), js, logger); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("SSE publisher initialized", "nats_url", natsURL, "contract", contract)

	return &SSEPublisher{
		nc:       nc,
		js:       js,
		contract: contract,
		logger:   logger,
	}, nil
}

// Close closes the NATS connection.
func (p *SSEPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("SSE publisher closed")
	}
	return nil
}

// handleStreamWaves streams waves appended after the client connects.
// GET /api/v1/stream/waves
//
// Each connection gets its own ephemeral consumer that only delivers new
// messages, so a client never sees history it could fetch from /api/v1/waves.
func handleStreamWaves(publisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		subject := natspkg.SubjectFor(publisher.contract)
		log := logger.With("subject", subject, "remote_addr", r.RemoteAddr)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flush(w)

		cons, err := publisher.js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
			FilterSubject: subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverNewPolicy,
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to create consumer", "error", err)
			writeSSEEvent(w, "error", map[string]string{"error": "failed to subscribe"})
			return
		}

		incoming := make(chan jetstream.Msg, 10)
		consuming, err := cons.Consume(func(msg jetstream.Msg) {
			select {
			case incoming <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to start consuming messages", "error", err)
			writeSSEEvent(w, "error", map[string]string{"error": "failed to subscribe"})
			return
		}
		defer consuming.Stop()

		if m != nil {
			m.RecordSSEConnectionChange(1)
			defer m.RecordSSEConnectionChange(-1)
		}
		log.DebugContext(ctx, "SSE client connected")

		if err := writeSSEEvent(w, "connected", map[string]string{"contract": publisher.contract}); err != nil {
			return
		}
		countSent(m, "connected")

		keepalive := time.NewTicker(10 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush(w)

			case msg := <-incoming:
				var event natspkg.WaveEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					log.WarnContext(ctx, "dropping undecodable wave event", "error", err)
					msg.Ack()
					continue
				}
				err := writeSSEEvent(w, "wave", &event)
				msg.Ack()
				if err != nil {
					log.WarnContext(ctx, "failed to write event", "error", err)
					return
				}
				countSent(m, "wave")
				log.DebugContext(ctx, "sent wave event", "address", event.Address)

			case <-ctx.Done():
				log.DebugContext(ctx, "SSE client disconnected")
				return
			}
		}
	})
}

// writeSSEEvent writes one named event with a JSON payload and flushes it.
func writeSSEEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func countSent(m *metrics.Metrics, eventType string) {
	if m != nil {
		m.RecordSSEEventSent(eventType)
	}
}
