// Package stream publishes authentication events to Kafka for downstream
// analytics consumers.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"license-auth/backend/internal/authevent/domain"
)

// KafkaEmitter publishes auth events using segmentio/kafka-go.
type KafkaEmitter struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaEmitter creates a Kafka emitter that writes auth events to the given topic.
// Returns nil when brokers or topic are empty, meaning the stream is disabled.
// Call Close when shutting down.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaEmitter{writer: writer, topic: topic}
}

type wireEvent struct {
	ID                string    `json:"id"`
	EventType         string    `json:"event_type"`
	Username          string    `json:"username,omitempty"`
	DeviceFingerprint string    `json:"device_fingerprint,omitempty"`
	Success           bool      `json:"success"`
	Details           string    `json:"details,omitempty"`
	IPAddress         string    `json:"ip_address,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Emit serializes the event as JSON and writes it to the Kafka topic.
// Uses the caller's context with a short timeout so slow Kafka does not block indefinitely.
func (e *KafkaEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if e == nil || e.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(wireEvent{
		ID:                event.ID,
		EventType:         event.EventType,
		Username:          event.Username,
		DeviceFingerprint: event.DeviceFingerprint,
		Success:           event.Success,
		Details:           event.Details,
		IPAddress:         event.IPAddress,
		Timestamp:         event.Timestamp,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = e.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.EventType),
		Value: payload,
	})
	if err != nil {
		log.Printf("authevent: kafka emit failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}
