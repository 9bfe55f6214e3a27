package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	pkgkafka "StockSense/pkg/kafka"
	"StockSense/pkg/logger"
)

// KafkaRunsHandler triggers pipeline stages from run commands.
// Incoming message schema: {"stage": "prepare"|"forecast", "artifact_id": "..."}.
type KafkaRunsHandler struct {
	topic    string
	prepare  *PrepareService
	forecast *ForecastService
	cred     domrepo.Credential
	metrics  domrepo.Metrics
	log      *logger.Logger
}

// NewKafkaRunsHandler uses cred for prepare commands; with a nil cred they are rejected.
func NewKafkaRunsHandler(topic string, prepare *PrepareService, forecast *ForecastService, cred domrepo.Credential, metrics domrepo.Metrics, log *logger.Logger) *KafkaRunsHandler {
	return &KafkaRunsHandler{topic: topic, prepare: prepare, forecast: forecast, cred: cred, metrics: metrics, log: log}
}

func (h *KafkaRunsHandler) Topic() string { return h.topic }

// Handle returns pkgkafka.ErrPermanent for commands that can never succeed,
// so the consumer commits them instead of retrying.
func (h *KafkaRunsHandler) Handle(ctx context.Context, b []byte) error {
	var cmd models.RunCommand
	if err := json.Unmarshal(b, &cmd); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode run command: %v", pkgkafka.ErrPermanent, err)
	}

	switch cmd.Stage {
	case models.StagePrepare:
		if h.cred == nil {
			return fmt.Errorf("%w: no service credential configured", pkgkafka.ErrPermanent)
		}
		res, err := h.prepare.Prepare(ctx, h.cred)
		if err != nil {
			return classify(err)
		}
		h.log.Info("prepare triggered from kafka",
			logger.String("artifact_id", res.ArtifactID.String()),
			logger.String("trace_id", pkgkafka.TraceID(ctx)),
		)
		return nil
	case models.StageForecast:
		if !cmd.ArtifactID.IsLatest() && !cmd.ArtifactID.Valid() {
			return fmt.Errorf("%w: invalid artifact id %q", pkgkafka.ErrPermanent, cmd.ArtifactID)
		}
		res, err := h.forecast.Forecast(ctx, cmd.ArtifactID)
		if err != nil {
			return classify(err)
		}
		h.log.Info("forecast triggered from kafka",
			logger.String("artifact_id", res.ArtifactID.String()),
			logger.Int("forecasts", len(res.Forecasts)),
			logger.Int("failures", len(res.Failures)),
			logger.String("trace_id", pkgkafka.TraceID(ctx)),
		)
		return nil
	default:
		return fmt.Errorf("%w: unknown stage %q", pkgkafka.ErrPermanent, cmd.Stage)
	}
}

// classify leaves transient errors retryable and marks the rest permanent.
func classify(err error) error {
	var ce *models.CollaboratorError
	switch {
	case errors.Is(err, models.ErrRunInProgress):
		return err
	case errors.As(err, &ce) && !ce.Unauthorized():
		return err
	case errors.Is(err, models.ErrArtifactNotFound),
		errors.Is(err, models.ErrArtifactCorrupt),
		errors.Is(err, models.ErrStructural),
		errors.Is(err, models.ErrQuantityOverflow),
		errors.As(err, &ce):
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	default:
		return err
	}
}

var _ pkgkafka.MessageHandler = (*KafkaRunsHandler)(nil)
