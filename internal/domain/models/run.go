package models

import "time"

// RunStage names a pipeline stage.
type RunStage string

const (
	StagePrepare  RunStage = "prepare"
	StageForecast RunStage = "forecast"
)

// RunStatus is the lifecycle state of a run event.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunEvent is broadcast to observers as a run progresses.
type RunEvent struct {
	Stage      RunStage   `json:"stage"`
	Status     RunStatus  `json:"status"`
	ArtifactID ArtifactID `json:"artifact_id,omitempty"`
	Entities   int        `json:"entities,omitempty"`
	Failures   int        `json:"failures,omitempty"`
	Message    string     `json:"message,omitempty"`
	At         time.Time  `json:"at"`
}

// RunCommand triggers a stage from a message bus.
type RunCommand struct {
	Stage      RunStage   `json:"stage"`
	ArtifactID ArtifactID `json:"artifact_id,omitempty"`
}

// PrepareResult is returned by the prepare stage.
type PrepareResult struct {
	ArtifactID  ArtifactID     `json:"artifact_id"`
	Buckets     int            `json:"buckets"`
	Entities    int            `json:"entities"`
	Diagnostics NormalizeStats `json:"diagnostics"`
}
