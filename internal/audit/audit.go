// Package audit publishes the outcome of every confirmed admin action.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event describes one confirmed action.
type Event struct {
	Resource  string    `json:"resource"`
	Verb      string    `json:"verb"`
	Actor     string    `json:"actor"`
	IDs       []string  `json:"ids,omitempty"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Sink receives audit events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events as JSON messages keyed by resource.
type KafkaSink struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaWriter returns a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
}

// NewKafkaSink wraps w. Each publish is bounded by timeout.
func NewKafkaSink(w MessageWriter, timeout time.Duration) *KafkaSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSink{w: w, timeout: timeout}
}

func (s *KafkaSink) Publish(ctx context.Context, ev Event) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Resource),
		Value: val,
		Time:  ev.At,
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }

// Logged wraps a sink so publish failures are logged and swallowed. Audit
// delivery never fails the action it describes.
type Logged struct {
	Sink Sink
	Log  zerolog.Logger
}

func (l Logged) Publish(ctx context.Context, ev Event) error {
	if err := l.Sink.Publish(ctx, ev); err != nil {
		l.Log.Warn().Err(err).
			Str("resource", ev.Resource).
			Str("verb", ev.Verb).
			Msg("audit publish failed")
	}
	return nil
}

func (l Logged) Close() error { return l.Sink.Close() }
