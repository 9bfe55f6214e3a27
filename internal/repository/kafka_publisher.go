package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/pkg/kafka"
)

// batchWriter is the subset of kafka.Producer the publisher needs.
type batchWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
	Close() error
}

// ForecastEvent is one per-entity message on the forecast topic.
type ForecastEvent struct {
	Kind         string             `json:"kind"` // "forecast" or "failure"
	ArtifactID   models.ArtifactID  `json:"artifact_id"`
	EntityID     string             `json:"entity_id"`
	Dates        []string           `json:"dates,omitempty"`
	Forecast     []float64          `json:"forecast,omitempty"`
	Code         models.FailureCode `json:"code,omitempty"`
	Message      string             `json:"message,omitempty"`
	Observations int                `json:"observations"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// RunSummaryEvent closes a run's batch on the forecast topic.
type RunSummaryEvent struct {
	Kind        string            `json:"kind"` // always "summary"
	ArtifactID  models.ArtifactID `json:"artifact_id"`
	Forecasts   int               `json:"forecasts"`
	Failures    int               `json:"failures"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// KafkaForecastPublisher emits one message per entity, keyed by entity, then a summary.
type KafkaForecastPublisher struct {
	w     batchWriter
	topic string
}

var _ domrepo.ForecastPublisher = (*KafkaForecastPublisher)(nil)

func NewKafkaForecastPublisher(p *kafka.Producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{w: p, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, res *models.ForecastResult) error {
	if res == nil {
		return nil
	}
	if err := p.w.PublishBatch(ctx, p.topic, forecastMessages(res)); err != nil {
		return fmt.Errorf("publish forecast %s: %w", res.ArtifactID, err)
	}
	return nil
}

func (p *KafkaForecastPublisher) Close() error { return p.w.Close() }

// forecastMessages orders entities by id so a batch is reproducible.
func forecastMessages(res *models.ForecastResult) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(res.Forecasts)+len(res.Failures)+1)

	for _, id := range sortedKeys(res.Forecasts) {
		s := res.Forecasts[id]
		msgs = append(msgs, kafka.Message{Key: []byte(id), Value: ForecastEvent{
			Kind:         "forecast",
			ArtifactID:   res.ArtifactID,
			EntityID:     id,
			Dates:        s.Dates(),
			Forecast:     s.Quantities(),
			Observations: s.Observations,
			GeneratedAt:  res.GeneratedAt,
		}})
	}
	for _, id := range sortedKeys(res.Failures) {
		f := res.Failures[id]
		msgs = append(msgs, kafka.Message{Key: []byte(id), Value: ForecastEvent{
			Kind:         "failure",
			ArtifactID:   res.ArtifactID,
			EntityID:     id,
			Code:         f.Code,
			Message:      f.Message,
			Observations: f.Observations,
			GeneratedAt:  res.GeneratedAt,
		}})
	}

	msgs = append(msgs, kafka.Message{Key: []byte(res.ArtifactID), Value: RunSummaryEvent{
		Kind:        "summary",
		ArtifactID:  res.ArtifactID,
		Forecasts:   len(res.Forecasts),
		Failures:    len(res.Failures),
		GeneratedAt: res.GeneratedAt,
	}})
	return msgs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
