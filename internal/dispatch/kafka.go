package dispatch

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes actions and events to per-type Kafka topics.
type KafkaSink struct {
	actionsWriter *kafka.Writer
	eventsWriter  *kafka.Writer
}

func NewKafkaSink(brokers []string, actionsTopic, eventsTopic string) *KafkaSink {
	return &KafkaSink{
		actionsWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    actionsTopic,
			Balancer: &kafka.LeastBytes{},
		},
		eventsWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    eventsTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *KafkaSink) DispatchAction(ctx context.Context, a Action) {
	s.write(ctx, s.actionsWriter, a.ConversationID, a)
}

func (s *KafkaSink) PublishEvent(ctx context.Context, e Event) {
	s.write(ctx, s.eventsWriter, e.ConversationID, e)
}

// write is fire-and-forget: dispatch consumers are advisory and must
// never fail a lifecycle transition, so errors only get logged.
func (s *KafkaSink) write(ctx context.Context, w *kafka.Writer, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("dispatch: marshal failed key=%s err=%v", key, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		log.Printf("dispatch: kafka write failed topic=%s key=%s err=%v", w.Topic, key, err)
	}
}

func (s *KafkaSink) Close() error {
	if err := s.actionsWriter.Close(); err != nil {
		return err
	}
	return s.eventsWriter.Close()
}
