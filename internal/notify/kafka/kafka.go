// Package kafka publishes every admission as a triage.admitted event for
// downstream consumers (bed management, the records integration).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/kiosk/internal/triage"
)

// EventType is the type header and envelope type of every published event.
const EventType = "triage.admitted"

const source = "kiosk"

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON envelope written to the topic. It carries internal ids
// only; consumers resolve the patient through the record store.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData is the admission payload of an Event.
type EventData struct {
	PatientID     int64       `json:"patient_id"`
	TriageID      int64       `json:"triage_id"`
	Tier          triage.Tier `json:"priority_tier"`
	TierRank      int         `json:"priority_rank"`
	Justification string      `json:"justification"`
	MatchedPhrase string      `json:"matched_phrase,omitempty"`
}

// Publisher writes admissions to a Kafka topic.
type Publisher struct {
	writer messageWriter
	topic  string
	logger log.Logger
}

// New creates a Publisher with a synchronous writer that waits for every
// in-sync replica, one message per batch.
func New(brokers []string, topic string, logger log.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newPublisher(w, topic, logger)
}

func newPublisher(w messageWriter, topic string, logger log.Logger) *Publisher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Publisher{writer: w, topic: topic, logger: logger}
}

// Name implements triage.Notifier.
func (p *Publisher) Name() string { return "kafka" }

// Notify publishes the admission keyed by its admission id.
func (p *Publisher) Notify(ctx context.Context, a *triage.Admission) error {
	ev := Event{
		ID:        a.ID,
		Type:      EventType,
		Source:    source,
		Timestamp: a.AdmittedAt,
		Data: EventData{
			PatientID:     a.PatientID,
			TriageID:      a.TriageID,
			Tier:          a.Tier,
			TierRank:      a.Tier.Rank(),
			Justification: a.Justification,
			MatchedPhrase: a.MatchedPhrase,
		},
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(a.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventType)},
			{Key: "source", Value: []byte(source)},
			{Key: "priority-tier", Value: []byte(a.Tier)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", p.topic, err)
	}

	p.logger.Info(ctx, "admission event published",
		"admission_id", a.ID,
		"topic", p.topic,
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
