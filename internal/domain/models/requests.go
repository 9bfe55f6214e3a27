package models

// Requests for the HTTP endpoints. Defined in domain for reuse by the CLI.

// PrepareRequest carries an optional login exchange. A bearer token in the
// Authorization header takes precedence.
type PrepareRequest struct {
	Username string `json:"username" validate:"required_with=Password,max=128"`
	Password string `json:"password" validate:"required_with=Username,max=256"`
}

type ForecastRequest struct {
	ArtifactID string `query:"artifact_id" json:"artifact_id" default:"latest" validate:"artifact_id"`
}

type SummaryRequest struct {
	ArtifactID string `param:"artifact_id" json:"artifact_id" validate:"required,artifact_id"`
}
