package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/IBM/sarama"

	"menuviz/internal/config"
	"menuviz/internal/logging"
	"menuviz/internal/services"
)

// Tracker records usage events.
type Tracker interface {
	Track(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

// Track implements Tracker.
func (Nop) Track(context.Context, Event) {}

// LogSink writes one info line per event.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a log sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "analytics")}
}

// Track implements Tracker.
func (s *LogSink) Track(ctx context.Context, event Event) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "analytics_event"),
		logging.String("event", event.Name),
	}
	for _, key := range slices.Sorted(maps.Keys(event.Params)) {
		attrs = append(attrs, logging.Any(key, event.Params[key]))
	}
	logging.WithContext(ctx, s.logger).Info("analytics event", logging.Args(attrs...)...)
}

// KafkaSink publishes events as JSON keyed by event name.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

type kafkaRecord struct {
	Event
	Timestamp int64 `json:"timestamp"`
}

// NewKafkaSink wraps an existing producer.
func NewKafkaSink(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   logging.NewComponentLogger(logger, "analytics"),
		now:      time.Now,
	}
}

// DialKafka connects a synchronous producer to brokers.
func DialKafka(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "analytics", "dial kafka",
			"failed to create kafka producer", err)
	}
	return NewKafkaSink(producer, topic, logger), nil
}

// Track implements Tracker.
func (s *KafkaSink) Track(ctx context.Context, event Event) {
	payload, err := json.Marshal(kafkaRecord{Event: event, Timestamp: s.now().UnixMilli()})
	if err != nil {
		s.warn(ctx, event, err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.Name),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.warn(ctx, event, services.Wrap(services.ErrTransient, "analytics", "publish",
			"kafka send failed", err))
	}
}

func (s *KafkaSink) warn(ctx context.Context, event Event, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "analytics event dropped", "analytics_dropped",
		logging.String("event", event.Name),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check analytics.kafka_brokers and broker health"),
		logging.String(logging.FieldImpact, "usage event not recorded"),
	)
}

// Close releases the producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

// NewFromConfig picks the sink named by the analytics section. Disabled
// analytics or sink "none" yield Nop. The returned close func is never nil.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Tracker, func() error, error) {
	noClose := func() error { return nil }
	if cfg == nil || !cfg.Analytics.Enabled {
		return Nop{}, noClose, nil
	}
	switch cfg.Analytics.Sink {
	case "log":
		return NewLogSink(logger), noClose, nil
	case "kafka":
		sink, err := DialKafka(cfg.Analytics.KafkaBrokers, cfg.Analytics.KafkaTopic, logger)
		if err != nil {
			return nil, noClose, err
		}
		return sink, sink.Close, nil
	default:
		return Nop{}, noClose, nil
	}
}
