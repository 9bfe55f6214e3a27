package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"StockSense/internal/domain/models"
	xhttp "StockSense/pkg/http"
)

// appError maps pipeline errors to API errors. Upstream bodies are never
// echoed back; only the upstream status is reported.
func appError(err error) *xhttp.AppError {
	var ce *models.CollaboratorError
	switch {
	case errors.Is(err, models.ErrNoCredential):
		return xhttp.UnauthorizedError("a bearer token or username and password is required").WithError(err)
	case errors.As(err, &ce):
		if ce.Unauthorized() {
			return xhttp.UnauthorizedError(fmt.Sprintf("transaction source rejected the credential (status %d)", ce.Status)).
				WithParam("upstream_status", ce.Status).WithError(err)
		}
		msg := "transaction source unreachable"
		if ce.Status != 0 {
			msg = fmt.Sprintf("transaction source %s failed with status %d", ce.Op, ce.Status)
		}
		return xhttp.BadGatewayError(msg).WithParam("upstream_status", ce.Status).WithError(err)
	case errors.Is(err, models.ErrStructural):
		return xhttp.UnprocessableError("ERR_STRUCTURAL", err.Error()).WithError(err)
	case errors.Is(err, models.ErrQuantityOverflow):
		return xhttp.UnprocessableError("ERR_QUANTITY_OVERFLOW", err.Error()).WithError(err)
	case errors.Is(err, models.ErrArtifactNotFound):
		return xhttp.NewAppError("ERR_ARTIFACT_NOT_FOUND", "artifact_id", err.Error(), http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrArtifactCorrupt):
		return xhttp.UnprocessableError("ERR_ARTIFACT_CORRUPT", err.Error()).WithError(err)
	case errors.Is(err, models.ErrRunInProgress):
		return xhttp.ConflictError("ERR_RUN_IN_PROGRESS", err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
