package events

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SyncCompleted is emitted once per committed ingestion batch.
type SyncCompleted struct {
	Kind       string    `json:"kind"`
	UserID     uint      `json:"user_id"`
	AdminID    uint      `json:"admin_id"`
	Saved      int       `json:"saved"`
	Merged     int       `json:"merged"`
	Duplicates int       `json:"duplicates"`
	Errors     int       `json:"errors"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	PublishSyncCompleted(ctx context.Context, ev SyncCompleted) error
	Close() error
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishSyncCompleted(context.Context, SyncCompleted) error { return nil }
func (Noop) Close() error                                              { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns an async writer; delivery failures are logged, never
// surfaced to the request that produced the event.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	log := zap.L().Named("events")
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           200 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}}
}

func (p *KafkaPublisher) PublishSyncCompleted(ctx context.Context, ev SyncCompleted) error {
	body, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	// keyed by tenant so one admin's events stay ordered on a partition
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.AdminID), 10)),
		Value: body,
		Time:  ev.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewKafkaPublisher(brokers, topic)
}
