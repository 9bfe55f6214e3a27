package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"StockSense/pkg/config"
	"StockSense/pkg/logger"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	if err != nil || string(b) != `{"a":1}` {
		t.Fatalf("encode map = %s, %v", b, err)
	}
	b, _ = encodeValue("raw")
	if string(b) != "raw" {
		t.Fatalf("encode string = %s", b)
	}
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	if err != nil || TraceID(ctx) != "abc" {
		t.Fatalf("trace id = %q, %v", TraceID(ctx), err)
	}

	ctx, _, _, _ = TraceHook().BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	if TraceID(ctx) != "" {
		t.Fatalf("trace id without header = %q", TraceID(ctx))
	}
}

func TestProducerOptionsFromConfig(t *testing.T) {
	c := config.KafkaConfig{
		Brokers:      []string{"b1:9092", "b2:9092"},
		Compression:  "lz4",
		RequiredAcks: -1,
		Producer: config.KafkaProducerConfig{
			MaxAttempts:  5,
			Linger:       20 * time.Millisecond,
			BatchSize:    50,
			WriteTimeout: 3 * time.Second,
			ReadTimeout:  7 * time.Second,
		},
	}
	var pc ProducerConfig
	for _, opt := range ProducerOptions(c) {
		opt(&pc)
	}
	if len(pc.Brokers) != 2 || pc.Compression != "lz4" || pc.RequiredAcks != -1 || !pc.HashByKey {
		t.Fatalf("producer config = %+v", pc)
	}
	if pc.WriteTimeout != 3*time.Second || pc.ReadTimeout != 7*time.Second {
		t.Fatalf("timeouts write=%v read=%v", pc.WriteTimeout, pc.ReadTimeout)
	}
	if pc.MaxAttempts != 5 || pc.BatchSize != 50 || pc.BatchTimeout != 20*time.Millisecond {
		t.Fatalf("batching = %+v", pc)
	}
}

func TestConsumerOptionsFromConfig(t *testing.T) {
	c := config.KafkaConfig{
		Brokers: []string{"b1:9092"},
		Consumer: config.KafkaConsumerConfig{
			GroupID:    "g",
			Workers:    3,
			RetryMax:   4,
			BackoffMin: time.Millisecond,
			BackoffMax: time.Second,
			DLQTopic:   "runs.dlq",
			MinBytes:   1,
			MaxBytes:   1024,
		},
	}
	var cc ConsumerConfig
	for _, opt := range ConsumerOptions(c, logger.Nop()) {
		opt(&cc)
	}
	if cc.GroupID != "g" || cc.WorkerCount != 3 || cc.RetryMax != 4 || cc.DLQTopic != "runs.dlq" || cc.MaxBytes != 1024 || cc.Logger == nil {
		t.Fatalf("consumer config = %+v", cc)
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("snappy") != kafka.Snappy || parseCompression("bogus") != kafka.Gzip {
		t.Fatal("unexpected compression mapping")
	}
}
