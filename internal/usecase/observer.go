package usecase

import (
	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/pkg/logger"
)

// Observers fans a run event out to every non-nil observer.
type Observers []domrepo.RunObserver

func (o Observers) OnRunEvent(ev models.RunEvent) {
	for _, obs := range o {
		if obs != nil {
			obs.OnRunEvent(ev)
		}
	}
}

// LogObserver writes run events to the application log.
type LogObserver struct{ L *logger.Logger }

func (o LogObserver) OnRunEvent(ev models.RunEvent) {
	fields := []logger.Field{
		logger.String("stage", string(ev.Stage)),
		logger.String("status", string(ev.Status)),
		logger.String("artifact_id", ev.ArtifactID.String()),
		logger.Int("entities", ev.Entities),
		logger.Int("failures", ev.Failures),
	}
	if ev.Status == models.RunFailed {
		o.L.Warn("run failed: "+ev.Message, fields...)
		return
	}
	o.L.Info("run "+string(ev.Status), fields...)
}

var _ domrepo.RunObserver = Observers(nil)
