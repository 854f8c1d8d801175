package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// consumerMaxRetries — попытки обработки входящего сообщения до отправки в DLQ.
const consumerMaxRetries = 3

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, kafka.WithProducerLogger(logger.WithField("layer", "kafka-producer")))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initKafkaConsumer подписывается на входящие topics оформления заказов и платежей.
// Сообщения, которые не удалось обработать, уходят в DLQ через producer.
func initKafkaConsumer(brokers []string, groupID string, routes map[string]kafka.MessageHandler, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	if len(brokers) == 0 || len(routes) == 0 {
		return nil, nil
	}

	topics := kafka.Topics(routes)
	consumer, err := kafka.NewConsumerWithDLQ(brokers, groupID, topics, kafka.NewTopicRouter(routes, logger), dlq, consumerMaxRetries)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, continuing without inbound messages")
		return nil, err
	}

	logger.WithFields(log.Fields{"group": groupID, "topics": topics}).Info("kafka consumer initialized")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// stopKafkaConsumer останавливает consumer если он не nil.
func stopKafkaConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}
