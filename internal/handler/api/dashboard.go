package api

import (
	"encoding/json"
	"time"

	models "github.com/lblaseygg/minty/internal/domain/models"
	domrepo "github.com/lblaseygg/minty/internal/domain/repository"
	icache "github.com/lblaseygg/minty/internal/service/cache"
	"github.com/lblaseygg/minty/internal/service/metrics"
	"github.com/lblaseygg/minty/internal/service/ratelimit"
	"github.com/lblaseygg/minty/internal/usecase"
	xhttp "github.com/lblaseygg/minty/pkg/http"
	xlogger "github.com/lblaseygg/minty/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the analytics endpoints: prediction, recommendation,
// chart history and live quotes.
type DashboardHandler struct {
	logger *xlogger.Logger
	uc     *usecase.DashboardUseCase
	cache  icache.BytesCache
	rl     *ratelimit.Limiter
}

func NewDashboardHandler(logger *xlogger.Logger, uc *usecase.DashboardUseCase) *DashboardHandler {
	metrics.Register()
	return &DashboardHandler{logger: logger, uc: uc, rl: ratelimit.New()}
}

// SetCache enables short-lived response caching.
func (h *DashboardHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/predict", h.Predict)
	g.GET("/recommend", h.Recommend)
	g.GET("/historical_data", h.Historical)
	g.GET("/live_data", h.Live)
	g.POST("/retrain", h.Retrain)
}

func (h *DashboardHandler) Predict(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("predict").Observe(time.Since(start).Seconds()) }()

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":predict", 2, 1) {
		return xhttp.AppErrorResponse(c, xhttp.RateLimitedError("rate limited"))
	}

	res, err := h.uc.Predict(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("predict").Inc()
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Recommend(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("recommend").Observe(time.Since(start).Seconds()) }()

	req := &models.RecommendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Recommend(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("recommend").Inc()
		h.logger.Error("recommend usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Historical(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("historical").Observe(time.Since(start).Seconds()) }()

	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng := domrepo.NormalizeChartRange(req.TF)

	cacheKey := "historical:" + req.Symbol + ":" + string(rng)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("historical cache_get_error", xlogger.Error(err))
		} else if ok {
			return c.JSONBlob(200, b)
		}
	}

	res, err := h.uc.Historical(c.Request().Context(), req.Symbol, rng)
	if err != nil {
		metrics.APIErrors.WithLabelValues("historical").Inc()
		h.logger.Error("historical usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: res}); err == nil {
			ttl := 60 * time.Second
			if rng.Intraday() {
				ttl = 15 * time.Second
			}
			if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil {
				h.logger.Warn("historical cache_set_error", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Live(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("live").Observe(time.Since(start).Seconds()) }()

	req := &models.LiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Live(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("live").Inc()
		h.logger.Error("live usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Retrain(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("retrain").Observe(time.Since(start).Seconds()) }()

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":retrain", 1, 1) {
		return xhttp.AppErrorResponse(c, xhttp.RateLimitedError("rate limited"))
	}

	if err := h.uc.Retrain(c.Request().Context(), req.Symbol); err != nil {
		metrics.APIErrors.WithLabelValues("retrain").Inc()
		h.logger.Error("retrain usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "retrained", "symbol": req.Symbol})
}
