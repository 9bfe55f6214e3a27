package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural means the upstream payload is not a collection of records.
	ErrStructural = errors.New("input is not a collection of key-value records")
	// ErrArtifactNotFound means the prepare stage has not produced the artifact.
	ErrArtifactNotFound = errors.New("hand-off artifact not found")
	// ErrArtifactCorrupt means the artifact exists but cannot be decoded.
	ErrArtifactCorrupt = errors.New("hand-off artifact is corrupt")
	// ErrQuantityOverflow means a bucket total does not fit in an int64.
	ErrQuantityOverflow = errors.New("bucket quantity overflows int64")
	// ErrInsufficientData means a series is too short for the model order.
	ErrInsufficientData = errors.New("insufficient observations")
	// ErrFitFailed means estimation produced no usable model.
	ErrFitFailed = errors.New("model fit failed")
	// ErrFitTimeout means estimation exceeded its time budget.
	ErrFitTimeout = errors.New("model fit timed out")
	// ErrRunInProgress means another run holds the run lock.
	ErrRunInProgress = errors.New("another run is in progress")
	// ErrNoCredential means the collaborator was called without a credential.
	ErrNoCredential = errors.New("credential is required")
)

// CollaboratorError reports a failed call to the transaction source.
type CollaboratorError struct {
	Op     string // "login" or "fetch"
	Status int    // upstream HTTP status, 0 if the request never completed
	Err    error
}

func (e *CollaboratorError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transaction source %s failed: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("transaction source %s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Unauthorized reports whether upstream rejected the credential.
func (e *CollaboratorError) Unauthorized() bool {
	return e.Status == 401 || e.Status == 403 || (e.Op == "login" && e.Status == 400)
}
