package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	PayrollRunCreated   EventType = "payroll.run.created"
	PayrollRunGenerated EventType = "payroll.run.generated"
	PayrollRunApproved  EventType = "payroll.run.approved"
	PayrollRunLocked    EventType = "payroll.run.locked"
	PayrollRunPaid      EventType = "payroll.run.paid"
	PayrollRunReopened  EventType = "payroll.run.reopened"
	PayrollRunCancelled EventType = "payroll.run.cancelled"
	EAFormGenerated     EventType = "ea.form.generated"
	LeaveApproved       EventType = "leave.request.approved"
)

// Event is the envelope written to the topic. Key is the aggregate id so
// events for one run stay ordered within a partition.
type Event struct {
	Type        EventType   `json:"type"`
	CompanyID   string      `json:"company_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     interface{} `json:"payload,omitempty"`
}

// Publisher emits domain events. Publish never blocks the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *slog.Logger
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
	}, 1000, logger)
}

func newProducer(w KafkaWriter, buffer int, logger *slog.Logger) *Producer {
	p := &Producer{
		writer:    w,
		events:    make(chan Event, buffer),
		logger:    logger.With("component", "kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

func (p *Producer) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			"event_type", string(event.Type),
			"aggregate_id", event.AggregateID,
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			// Flush what is already queued.
			for {
				select {
				case event := <-p.events:
					p.sendEvent(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			"error", err,
			"aggregate_id", event.AggregateID,
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			"error", err,
			"event_type", string(event.Type),
			"aggregate_id", event.AggregateID,
		)
	}
}

func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		<-p.done
		if err := p.writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer", "error", err)
		}
	})
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
