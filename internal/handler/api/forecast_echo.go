package api

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	"StockSense/internal/service/txsource"
	xhttp "StockSense/pkg/http"
	"StockSense/pkg/http/middleware"
	xlogger "StockSense/pkg/logger"
)

func init() {
	xhttp.RegisterValidation("artifact_id", func(v string) bool {
		id := models.ArtifactID(v)
		return id.IsLatest() || id.Valid()
	}, `must be "latest" or an id like 20240201T083000Z-abcdef12`)
}

// Preparer runs the ingest stage.
type Preparer interface {
	Prepare(ctx context.Context, cred domrepo.Credential) (*models.PrepareResult, error)
}

// Forecaster runs the projection stage and exposes stored artifacts.
type Forecaster interface {
	Forecast(ctx context.Context, id models.ArtifactID) (*models.ForecastResult, error)
	Series(ctx context.Context, id models.ArtifactID) (models.ArtifactID, map[string][]models.WeeklyBucket, error)
	Artifact(ctx context.Context, id models.ArtifactID) (*models.HandoffArtifact, error)
	Artifacts(ctx context.Context, limit int) ([]models.ArtifactSummary, error)
}

// ForecastEchoHandler serves the pipeline over HTTP.
type ForecastEchoHandler struct {
	logger   *xlogger.Logger
	prepare  Preparer
	forecast Forecaster
	limiter  *middleware.Limiter
}

// NewForecastEchoHandler rate limits prepare calls with limiter when it is non-nil.
func NewForecastEchoHandler(logger *xlogger.Logger, prepare Preparer, forecast Forecaster, limiter *middleware.Limiter) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, prepare: prepare, forecast: forecast, limiter: limiter}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter))
	}
	g.POST("/summary/prepare", h.Prepare, mw...)
	g.GET("/summary/:artifact_id", h.Summary)
	g.GET("/forecast/weekly", h.Weekly)
	g.GET("/forecast/series", h.Series)
	g.GET("/artifacts", h.Artifacts)
	g.GET("/artifacts/latest", h.Latest)
}

// Prepare fetches upstream transactions with the caller's credential and
// stores a new hand-off artifact.
func (h *ForecastEchoHandler) Prepare(c echo.Context) error {
	req := &models.PrepareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.prepare.Prepare(c.Request().Context(), credentialFrom(c, req))
	if err != nil {
		return h.fail(c, "prepare", err)
	}
	return xhttp.CreatedResponse(c, res)
}

// credentialFrom prefers a bearer token in the Authorization header over a
// username and password in the body. It returns nil when neither is present.
func credentialFrom(c echo.Context, req *models.PrepareRequest) domrepo.Credential {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return txsource.NewBearerToken(strings.TrimSpace(token))
		}
	}
	if req.Username != "" && req.Password != "" {
		return txsource.NewPasswordLogin(req.Username, req.Password)
	}
	return nil
}

func (h *ForecastEchoHandler) Weekly(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.forecast.Forecast(c.Request().Context(), models.ArtifactID(req.ArtifactID))
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, newForecastView(res))
}

func (h *ForecastEchoHandler) Series(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id, series, err := h.forecast.Series(c.Request().Context(), models.ArtifactID(req.ArtifactID))
	if err != nil {
		return h.fail(c, "series", err)
	}
	return xhttp.SuccessResponse(c, weeklyView{ArtifactID: id, Series: series})
}

func (h *ForecastEchoHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	art, err := h.forecast.Artifact(c.Request().Context(), models.ArtifactID(req.ArtifactID))
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, art)
}

func (h *ForecastEchoHandler) Latest(c echo.Context) error {
	art, err := h.forecast.Artifact(c.Request().Context(), models.LatestArtifact)
	if err != nil {
		return h.fail(c, "latest", err)
	}
	return xhttp.SuccessResponse(c, models.ArtifactSummary{ID: art.ID, CreatedAt: art.CreatedAt, BucketCount: len(art.Buckets)})
}

func (h *ForecastEchoHandler) Artifacts(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	list, err := h.forecast.Artifacts(c.Request().Context(), limit)
	if err != nil {
		return h.fail(c, "artifacts", err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *ForecastEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := appError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.String("code", appErr.Code), xlogger.Error(err))
	} else {
		h.logger.Warn(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
