// Package notify fans freshly generated alerts out to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/summary"
	"github.com/noonaei/appsFlyer-hackathon/pkg/logging"
)

const EventType = "summary.alert"

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// NewKafkaClient creates a producer-only franz-go client.
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// AlertEvent is the message value published per alert.
type AlertEvent struct {
	EventID         string        `json:"eventId"`
	EventType       string        `json:"eventType"`
	Item            string        `json:"item"`
	Category        string        `json:"category"`
	Severity        risk.Severity `json:"severity"`
	Explanation     string        `json:"explanation"`
	SuggestedAction string        `json:"suggestedAction"`
	AgeGroup        string        `json:"ageGroup"`
	Location        string        `json:"location"`
	Source          string        `json:"source"`
	Timestamp       int64         `json:"timestamp"`
}

type Config struct {
	Producer    Producer
	Topic       string
	MinSeverity risk.Severity
	Logger      logging.Logger
	// Messages is labeled topic, operation, status; Duration is labeled operation.
	Messages *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Now      func() time.Time
}

// Publisher sends alerts at or above MinSeverity. Delivery is asynchronous
// and failures are only logged and counted.
type Publisher struct {
	producer Producer
	topic    string
	min      risk.Severity
	logger   logging.Logger
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
	now      func() time.Time
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.MinSeverity.Valid() {
		cfg.MinSeverity = risk.SeverityMedium
	}
	return &Publisher{
		producer: cfg.Producer,
		topic:    cfg.Topic,
		min:      cfg.MinSeverity,
		logger:   cfg.Logger,
		messages: cfg.Messages,
		duration: cfg.Duration,
		now:      cfg.Now,
	}
}

// Notify has the summary.NotifyFunc shape.
func (p *Publisher) Notify(ctx context.Context, f summary.Facts, o summary.Outcome) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range o.Output.Alerts {
		if a.Severity.Rank() < p.min.Rank() {
			continue
		}
		ev := AlertEvent{
			EventID:         uuid.NewString(),
			EventType:       EventType,
			Item:            a.Item,
			Category:        a.Category,
			Severity:        a.Severity,
			Explanation:     a.Explanation,
			SuggestedAction: a.SuggestedAction,
			AgeGroup:        f.AgeGroup,
			Location:        f.Location,
			Source:          string(o.Source),
			Timestamp:       p.now().UnixMilli(),
		}
		p.publish(ctx, ev)
	}
}

func (p *Publisher) publish(ctx context.Context, ev AlertEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.count("error")
		p.logger.WithError(err).Error("Failed to marshal alert event")
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Category + "::" + ev.Item),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "severity", Value: []byte(ev.Severity)},
			{Key: "source", Value: []byte(ev.Source)},
		},
	}

	start := p.now()
	p.producer.Produce(ctx, record, func(r *kgo.Record, err error) {
		if p.duration != nil {
			p.duration.WithLabelValues("produce").Observe(p.now().Sub(start).Seconds())
		}
		if err != nil {
			p.count("error")
			p.logger.WithError(err).WithFields(logging.Fields{
				"topic":    r.Topic,
				"event_id": ev.EventID,
				"category": ev.Category,
			}).Warn("Failed to publish alert event")
			return
		}
		p.count("success")
	})
}

func (p *Publisher) count(status string) {
	if p.messages != nil {
		p.messages.WithLabelValues(p.topic, "produce", status).Inc()
	}
}
