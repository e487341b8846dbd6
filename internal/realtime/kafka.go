package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const originHeader = "origin"

// KafkaRelay forwards events to a topic and replays events produced by other
// instances into the local hub.
type KafkaRelay struct {
	writer   *kafka.Writer
	brokers  []string
	topic    string
	instance string
	log      *zap.SugaredLogger
}

var _ Forwarder = (*KafkaRelay)(nil)

func NewKafkaRelay(brokers []string, topic string, log *zap.SugaredLogger) *KafkaRelay {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorw("failed to write kafka messages", "error", err, "message_count", len(messages))
			}
		},
	}
	return &KafkaRelay{
		writer:   writer,
		brokers:  brokers,
		topic:    topic,
		instance: uuid.NewString(),
		log:      log,
	}
}

func (r *KafkaRelay) Forward(ctx context.Context, ev Event) error {
	msg, err := encodeMessage(ev, r.instance)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, msg)
}

// Run consumes the topic until ctx is done, delivering foreign events to hub.
func (r *KafkaRelay) Run(ctx context.Context, hub *Hub) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     r.brokers,
		Topic:       r.topic,
		GroupID:     "jobtracker-realtime-" + r.instance,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			r.log.Warnw("kafka read failed", "error", err)
			continue
		}

		ev, origin, err := decodeMessage(msg)
		if err != nil {
			r.log.Warnw("dropping malformed realtime message", "error", err)
			continue
		}
		if origin == r.instance {
			continue
		}
		hub.Deliver(ev)
	}
}

func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

func encodeMessage(ev Event, origin string) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode realtime event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(ev.UserID),
		Value:   value,
		Headers: []kafka.Header{{Key: originHeader, Value: []byte(origin)}},
	}, nil
}

func decodeMessage(msg kafka.Message) (Event, string, error) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return Event{}, "", fmt.Errorf("decode realtime event: %w", err)
	}
	var origin string
	for _, h := range msg.Headers {
		if h.Key == originHeader {
			origin = string(h.Value)
		}
	}
	return ev, origin, nil
}
