package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaRecorder publishes administered-vaccine facts to the history topic,
// keyed by person so one person's facts stay ordered.
type KafkaRecorder struct {
	writer *kafka.Writer
}

func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	return &KafkaRecorder{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}),
	}
}

func (r *KafkaRecorder) RecordAdministered(ctx context.Context, f Fact) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal history fact: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(f.PersonID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "appointment_id", Value: []byte(f.AppointmentID.String())},
		},
	}

	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish history fact: %w", err)
	}
	return nil
}

func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
