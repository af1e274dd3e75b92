package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"fema-catalog/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher streams user activity to downstream consumers.
type Publisher interface {
	PublishBookmarkSaved(ctx context.Context, event BookmarkSaved) error
	PublishUserRegistered(ctx context.Context, event UserRegistered) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: log}
}

// PublishBookmarkSaved streams the bookmark event keyed by user id, so one
// user's activity stays ordered within a partition.
func (p *Producer) PublishBookmarkSaved(ctx context.Context, event BookmarkSaved) error {
	event.Type = EventBookmarkSaved
	return p.publish(ctx, event.Type, event.UserID, event)
}

func (p *Producer) PublishUserRegistered(ctx context.Context, event UserRegistered) error {
	event.Type = EventUserRegistered
	return p.publish(ctx, event.Type, event.UserID, event)
}

func (p *Producer) publish(ctx context.Context, eventType string, userID int64, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, eventType)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishBookmarkSaved(context.Context, BookmarkSaved) error   { return nil }
func (NopPublisher) PublishUserRegistered(context.Context, UserRegistered) error { return nil }
func (NopPublisher) Close() error                                                { return nil }
