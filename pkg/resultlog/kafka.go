package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter - часть kafka.Writer, которую использует KafkaPublisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher отправляет результат сообщением в topic
// Ключ сообщения - имя результата, заголовки status и run_id
type KafkaPublisher struct {
	writer MessageWriter
	name   string
}

// KafkaOptions - параметры KafkaPublisher
type KafkaOptions struct {
	Brokers []string
	Topic   string
	Name    string
}

// NewKafkaPublisher создает publisher с синхронным kafka.Writer
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{}, // результаты одной загрузки в одну партицию
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return NewKafkaPublisherWithWriter(w, opts.Name), nil
}

// NewKafkaPublisherWithWriter создает publisher поверх готового writer
func NewKafkaPublisherWithWriter(w MessageWriter, name string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, name: name}
}

// Publish отправляет результат
func (p *KafkaPublisher) Publish(ctx context.Context, result Result) error {
	if result.Name == "" {
		result.Name = p.name
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(p.name),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(result.Status)},
			{Key: "run_id", Value: []byte(result.RunID)},
		},
		Time: result.FinishedAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close закрывает writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
