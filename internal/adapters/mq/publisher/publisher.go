// Package publisher emits award and report events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

// Event types carried in the envelope and the event-type header.
const (
	EventAwardGranted  = "award.granted"
	EventReportSummary = "report.summary"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher turns domain events into Kafka messages.
type Publisher struct {
	writer      MessageWriter
	awardTopic  string
	reportTopic string
	now         func() time.Time
	log         logger.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTopics overrides the award and report topics.
func WithTopics(award, report string) Option {
	return func(p *Publisher) {
		if award != "" {
			p.awardTopic = award
		}
		if report != "" {
			p.reportTopic = report
		}
	}
}

// WithClock overrides the envelope clock.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		p.log = l
	}
}

// New creates a publisher writing through w.
func New(w MessageWriter, opts ...Option) *Publisher {
	p := &Publisher{
		writer:      w,
		awardTopic:  "logbook.award.granted",
		reportTopic: "logbook.report.summary",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ awards.Notifier = (*Publisher)(nil)

// AwardGranted publishes a grant keyed by user id.
func (p *Publisher) AwardGranted(ctx context.Context, g awards.Grant) error {
	return p.publish(ctx, p.awardTopic, EventAwardGranted, g.UserID, g)
}

// ReportSummary publishes a summary report keyed by user id.
func (p *Publisher) ReportSummary(ctx context.Context, r model.Report) error {
	return p.publish(ctx, p.reportTopic, EventReportSummary, r.UserID, r)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, userID int64, payload any) (err error) {
	defer func() { metrics.RecordNotification(topic, err) }()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPublish, eventType, err)
	}
	now := p.now().UTC()
	value, err := json.Marshal(Envelope{EventType: eventType, OccurredAt: now, Payload: body})
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %w", ErrPublish, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: value,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}
	if rid := logger.RequestID(ctx); rid != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "request-id", Value: []byte(rid)})
	}

	if err := p.writer.WriteMessages(ctx, topic, msg); err != nil {
		return fmt.Errorf("%w: %s to %s: %w", ErrPublish, eventType, topic, err)
	}
	if p.log != nil {
		p.log.Debug(ctx, "event published", logger.String("topic", topic), logger.String("event", eventType))
	}
	return nil
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
