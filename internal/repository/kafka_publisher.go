package repository

import (
	"context"

	"SRZones/internal/domain/models"
	domrepo "SRZones/internal/domain/repository"
	pkgkafka "SRZones/pkg/kafka"
)

// batchPublisher is the part of *pkgkafka.Producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaCalendarPublisher emits one message per calendar day, keyed by pair.
type KafkaCalendarPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaCalendarPublisher(producer *pkgkafka.Producer, topic string) *KafkaCalendarPublisher {
	return &KafkaCalendarPublisher{producer: producer, topic: topic}
}

func (p *KafkaCalendarPublisher) PublishCalendar(ctx context.Context, pair models.Pair, cal *models.ZoneCalendar) error {
	if cal.Len() == 0 {
		return nil
	}
	key := []byte(pair.Name())
	doc := cal.Document(pair)
	msgs := make([]pkgkafka.Message, 0, len(doc.Days))
	for _, d := range doc.Days {
		d.Pair = doc.Pair
		msgs = append(msgs, pkgkafka.Message{Key: key, Value: d})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaCalendarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops calendars; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishCalendar(context.Context, models.Pair, *models.ZoneCalendar) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var (
	_ domrepo.CalendarPublisher = (*KafkaCalendarPublisher)(nil)
	_ domrepo.CalendarPublisher = NoopPublisher{}
	_ domrepo.CalendarStore     = (*MultiStore)(nil)
	_ domrepo.CalendarStore     = (*FileCalendarStore)(nil)
	_ domrepo.CalendarStore     = (*SQLiteCalendarStore)(nil)
	_ domrepo.CalendarStore     = (*PostgresCalendarStore)(nil)
	_ domrepo.CalendarStore     = (*CHCalendarStore)(nil)
	_ domrepo.CalendarStore     = (*CacheCalendarStore)(nil)
	_ domrepo.BarSource         = (*CSVBarSource)(nil)
	_ domrepo.BarSource         = (*CHBarSource)(nil)
)
