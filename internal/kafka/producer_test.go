package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fema-catalog/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBookmarkSaved(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Topic: "disasters.user-activity", Logger: logger.NewNopLogger()}

	savedAt := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	err := p.PublishBookmarkSaved(context.Background(), BookmarkSaved{
		UserID: 42, EventID: 7, FemaID: 4000, EventName: "Camp Fire", SavedAt: savedAt,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, EventBookmarkSaved, string(msg.Headers[0].Value))

	var decoded BookmarkSaved
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventBookmarkSaved, decoded.Type)
	assert.Equal(t, 4000, decoded.FemaID)
	assert.True(t, savedAt.Equal(decoded.SavedAt))
}

func TestPublishUserRegistered_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &Producer{Writer: w, Topic: "t", Logger: logger.NewNopLogger()}

	err := p.PublishUserRegistered(context.Background(), UserRegistered{UserID: 1, Username: "ada"})
	assert.ErrorContains(t, err, "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishBookmarkSaved(context.Background(), BookmarkSaved{}))
	assert.NoError(t, p.PublishUserRegistered(context.Background(), UserRegistered{}))
	assert.NoError(t, p.Close())
}

func TestNewProducer_FlushesPromptly(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "disasters.user-activity", logger.NewNopLogger())
	defer p.Close()

	w, ok := p.Writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "disasters.user-activity", w.Topic)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.BatchTimeout)
}
