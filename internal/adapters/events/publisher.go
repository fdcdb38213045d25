// Package events announces matched clips to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// DefaultTopic carries clip-matched events.
const DefaultTopic = "highlights.clips"

// ErrNoBrokers is returned when Kafka is requested without brokers.
var ErrNoBrokers = errors.New("kafka brokers are required")

// ClipMatched is the event payload, keyed by play id on the wire.
type ClipMatched struct {
	HighlightID int64     `json:"highlight_id"`
	PlayID      string    `json:"play_id"`
	Season      int       `json:"season"`
	Week        int       `json:"week"`
	PlayerIDs   []string  `json:"player_ids"`
	EventType   string    `json:"event_type"`
	Points      float64   `json:"points"`
	URL         string    `json:"url"`
	EmbedURL    string    `json:"embed_url"`
	StartSec    *int      `json:"start_sec,omitempty"`
	EndSec      *int      `json:"end_sec,omitempty"`
	Confidence  float64   `json:"confidence"`
	MatchedAt   time.Time `json:"matched_at"`
}

// NewClipMatched builds the event for a stored highlight and its clip.
func NewClipMatched(h model.Highlight, c model.Clip) ClipMatched {
	return ClipMatched{
		HighlightID: h.ID,
		PlayID:      h.PlayID,
		Season:      h.Season,
		Week:        h.Week,
		PlayerIDs:   h.PlayerIDs,
		EventType:   h.EventType,
		Points:      h.Points,
		URL:         c.URL,
		EmbedURL:    c.EmbedURL,
		StartSec:    c.StartSec,
		EndSec:      c.EndSec,
		Confidence:  c.Confidence,
		MatchedAt:   c.CreatedAt,
	}
}

// Publisher emits clip events.
type Publisher interface {
	Publish(ctx context.Context, e ClipMatched) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ClipMatched) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// Kafka publishes events synchronously through a sarama producer.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
}

// NewProducerConfig returns the producer settings used for clip events.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	return cfg
}

// DialKafka connects a SyncProducer to brokers.
func DialKafka(brokers []string, opts ...Option) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	p, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewKafka(p, opts...), nil
}

// NewKafka wraps an existing producer. The Kafka publisher owns it after
// this call.
func NewKafka(p sarama.SyncProducer, opts ...Option) *Kafka {
	k := &Kafka{producer: p, topic: DefaultTopic, log: logger.Nop()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Publish sends e and waits for the broker acknowledgement.
func (k *Kafka) Publish(ctx context.Context, e ClipMatched) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.PlayID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		metrics.RecordErrorByComponent("events", "publish_failed")
		return fmt.Errorf("publishing %s: %w", e.PlayID, err)
	}
	k.log.Debug(ctx, "clip event published",
		logger.String("play_id", e.PlayID),
		logger.Int("partition", int(partition)),
		logger.Int64("offset", offset))
	return nil
}

// Close flushes and closes the producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
