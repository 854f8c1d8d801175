package kafka

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// DefaultClientID — client.id продюсера сервиса заказов.
const DefaultClientID = "storefront-order-service"

// Producer публикует JSON-события витрины: события заказов из outbox,
// платёжные команды и dead letters консьюмера.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	now      func() time.Time
}

// ProducerOption настраивает Producer.
type ProducerOption func(*producerOptions)

type producerOptions struct {
	clientID string
	logger   *log.Entry
}

// WithClientID задаёт client.id, под которым продюсер виден брокеру.
func WithClientID(clientID string) ProducerOption {
	return func(o *producerOptions) {
		if clientID != "" {
			o.clientID = clientID
		}
	}
}

// WithProducerLogger подменяет логгер продюсера.
func WithProducerLogger(logger *log.Entry) ProducerOption {
	return func(o *producerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewProducer подключается к брокерам. Продюсер идемпотентный:
// ключ сообщения (платёжное намерение, корзина) определяет партицию,
// поэтому события одного агрегата сохраняют порядок.
func NewProducer(brokers []string, opts ...ProducerOption) (*Producer, error) {
	options := producerOptions{
		clientID: DefaultClientID,
		logger:   log.WithField("component", "kafka-producer"),
	}
	for _, opt := range opts {
		opt(&options)
	}

	config := sarama.NewConfig()
	config.ClientID = options.clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // требование идемпотентного продюсера

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return newProducer(producer, options.logger), nil
}

func newProducer(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	return &Producer{
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// PublishEvent сериализует событие в JSON и отправляет его в topic.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	return p.PublishEventWithHeaders(topic, key, event, nil)
}

// PublishEventWithHeaders отправляет событие с заголовками.
// Заголовки пишутся в порядке имён.
func (p *Producer) PublishEventWithHeaders(topic string, key string, event interface{}, headers map[string]string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Headers:   recordHeaders(headers),
		Timestamp: p.timestamp(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("kafka publish failed")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("kafka message published")

	return nil
}

func (p *Producer) timestamp() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]sarama.RecordHeader, 0, len(names))
	for _, name := range names {
		out = append(out, sarama.RecordHeader{Key: []byte(name), Value: []byte(headers[name])})
	}
	return out
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
