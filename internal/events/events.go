package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/paylens/reconciliation-service/internal/models"
)

// Event types emitted by the reconciliation engine.
const (
	TypeRunCompleted = "reconciliation.completed"
)

// Event is the envelope published to the run-event topic.
type Event struct {
	EventID   string    `json:"event_id"`
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Payload   any       `json:"payload"`
}

// Publisher writes reconciliation run events to Kafka. It is disabled when
// no brokers are configured, so the engine can carry one unconditionally.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a publisher from a comma-separated broker list.
// An empty list yields a disabled publisher.
func NewPublisher(brokersCSV, topic string) *Publisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &Publisher{}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Enabled reports whether brokers are configured.
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// PublishRunCompleted emits the summary of a committed run, keyed by run id.
func (p *Publisher) PublishRunCompleted(ctx context.Context, result *models.MatchResult) error {
	evt := Event{
		EventID:   uuid.NewString(),
		RunID:     result.RunID,
		Type:      TypeRunCompleted,
		CreatedAt: time.Now().UTC(),
		Payload:   result,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.RunID),
		Value: data,
		Time:  evt.CreatedAt,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
