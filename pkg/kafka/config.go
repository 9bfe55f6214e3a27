package kafka

import (
	"time"

	"StockSense/pkg/config"
	"StockSense/pkg/logger"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds the writer settings for forecast events.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	HashByKey    bool
}

// ProducerOptions maps the kafka config section onto producer options.
// Messages are hashed by key, so every event of one artifact lands on the
// same partition in publish order.
func ProducerOptions(c config.KafkaConfig) []ProducerOption {
	return []ProducerOption{
		WithBrokers(c.Brokers),
		WithCompression(c.Compression),
		WithRequiredAcks(c.RequiredAcks),
		WithMaxAttempts(c.Producer.MaxAttempts),
		WithBatchSize(c.Producer.BatchSize),
		WithBatchTimeout(c.Producer.Linger),
		WithTimeouts(c.Producer.WriteTimeout, c.Producer.ReadTimeout),
		WithHashByKey(true),
	}
}

// ConsumerOptions maps the kafka config section onto options for the run
// trigger consumer.
func ConsumerOptions(c config.KafkaConfig, l *logger.Logger) []ConsumerOption {
	cc := c.Consumer
	return []ConsumerOption{
		WithConsumerBrokers(c.Brokers),
		WithConsumerGroupID(cc.GroupID),
		WithConsumerWorkers(cc.Workers),
		WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		WithConsumerDLQ(cc.DLQTopic),
		WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
		WithConsumerLogger(l),
	}
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets the codec by name: gzip, snappy, lz4, zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
	}
}

// WithBatchTimeout sets how long a partial batch may linger before it is sent.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if timeout > 0 {
			c.BatchTimeout = timeout
		}
	}
}

// WithTimeouts sets writer write and read timeouts. Zero keeps the default.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithHashByKey selects the hash balancer for per-key ordering.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}
