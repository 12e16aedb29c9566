package api

import (
	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnomaliesEchoHandler exposes the consolidated anomaly table over HTTP.
type AnomaliesEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ConsolidationUseCase
}

func NewAnomaliesEchoHandler(logger *xlogger.Logger, uc *usecase.ConsolidationUseCase) *AnomaliesEchoHandler {
	return &AnomaliesEchoHandler{logger: logger, uc: uc}
}

func (h *AnomaliesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/anomalies", h.List)
	g.GET("/anomalies/:period", h.Period)
	g.GET("/indicators", h.Indicator)
	g.POST("/run", h.Run)
}

// List returns consolidated records, optionally filtered by detector,
// consensus, flag status, or minimum combined score.
func (h *AnomaliesEchoHandler) List(c echo.Context) error {
	req := &models.ListAnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	records, err := h.uc.List(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("list anomalies error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, records, int64(len(records)))
}

// Period returns the consolidated record for one quarter, e.g. /anomalies/2020Q2.
func (h *AnomaliesEchoHandler) Period(c echo.Context) error {
	req := &models.PeriodRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := models.ParsePeriod(req.Period)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	rec, err := h.uc.Record(c.Request().Context(), p)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no record for period %s", p))
	}
	return xhttp.SuccessResponse(c, rec)
}

// Indicator returns one raw indicator series for drill-down charts.
func (h *AnomaliesEchoHandler) Indicator(c echo.Context) error {
	req := &models.IndicatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	periods, values, err := h.uc.Indicator(c.Request().Context(), models.Indicator(req.Name))
	if err != nil {
		h.logger.Error("indicator series error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"indicator": req.Name,
		"periods":   periods,
		"values":    values,
	})
}

// Run forces a full recomputation of the consolidated table.
func (h *AnomaliesEchoHandler) Run(c echo.Context) error {
	run, err := h.uc.Run(c.Request().Context())
	if err != nil {
		h.logger.Error("run pipeline error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, run)
}
