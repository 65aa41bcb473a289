package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/harvester"
)

// Notifier publishes one message per harvested record. Messages are keyed by
// record identifier so every version of a record lands on the same partition.
type Notifier struct {
	config   kafka.ConfigMap
	producer *kafka.Producer
	topic    string
	brokers  string
	logger   *zap.Logger
}

// ParseConfig builds a producer config from kafka://broker:port/topic?key=value.
// Query parameters are passed through to the producer.
func ParseConfig(uri *url.URL) (kafka.ConfigMap, string, error) {
	if uri.Scheme != "kafka" {
		return nil, "", fmt.Errorf("unsupported scheme %q, expected kafka", uri.Scheme)
	}

	topic := strings.TrimPrefix(uri.Path, "/")
	if topic == "" {
		return nil, "", fmt.Errorf("topic must be specified in URL path")
	}

	brokers := uri.Host
	if brokers == "" {
		return nil, "", fmt.Errorf("broker must be specified in URL host")
	}

	config := kafka.ConfigMap{
		"bootstrap.servers":   brokers,
		"client.id":           "harvester",
		"acks":                "all",
		"linger.ms":           "5",
		"request.timeout.ms":  "5000",
		"delivery.timeout.ms": "10000",
	}

	for key, values := range uri.Query() {
		if len(values) > 0 {
			config[key] = values[0]
		}
	}

	return config, topic, nil
}

func NewNotifier(uri *url.URL, logger *zap.Logger) (*Notifier, error) {
	config, topic, err := ParseConfig(uri)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Notifier{
		config:  config,
		topic:   topic,
		brokers: uri.Host,
		logger:  logger,
	}, nil
}

func (n *Notifier) Connect(ctx context.Context) error {
	producer, err := kafka.NewProducer(&n.config)
	if err != nil {
		return err
	}
	n.producer = producer

	go func() {
		defer n.logger.Debug("producer event loop closed")

		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					n.logger.Error("delivery failed",
						zap.String("key", string(ev.Key)),
						zap.Error(ev.TopicPartition.Error),
					)
				} else {
					n.logger.Debug("message delivered",
						zap.String("topic", *ev.TopicPartition.Topic),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)))
				}
			case kafka.Error:
				n.logger.Error("producer error", zap.Error(ev))
			}
		}
	}()

	n.logger.Info("kafka notifier connected",
		zap.String("topic", n.topic),
		zap.String("brokers", n.brokers))

	return nil
}

func (n *Notifier) Notify(ctx context.Context, event harvester.Event) error {
	if n.producer == nil {
		return fmt.Errorf("kafka notifier is not connected")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &n.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Identifier),
		Value: value,
	}, nil)
}

const defaultFlushTimeout = 5 * time.Second

// Flush waits for queued messages to be delivered, until ctx's deadline or
// for at most five seconds.
func (n *Notifier) Flush(ctx context.Context) error {
	if n.producer == nil {
		return nil
	}

	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if timeout < 0 {
		timeout = 0
	}

	if remaining := n.producer.Flush(int(timeout.Milliseconds())); remaining > 0 {
		return fmt.Errorf("%d message(s) not delivered to %s", remaining, n.topic)
	}
	return nil
}

// Close flushes pending messages for up to five seconds.
func (n *Notifier) Close(ctx context.Context) error {
	if n.producer == nil {
		return nil
	}
	if remaining := n.producer.Flush(5000); remaining > 0 {
		n.logger.Warn("messages not delivered before close", zap.Int("remaining", remaining))
	}
	n.producer.Close()
	n.producer = nil
	return nil
}
