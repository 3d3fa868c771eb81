package api

import (
	"errors"
	"net/http"
	"time"

	models "github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/ledger"
	"github.com/lblaseygg/minty/internal/service/metrics"
	"github.com/lblaseygg/minty/internal/usecase"
	xhttp "github.com/lblaseygg/minty/pkg/http"
	xlogger "github.com/lblaseygg/minty/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TradingHandler serves the paper-trading endpoints.
type TradingHandler struct {
	logger *xlogger.Logger
	uc     *usecase.TradingUseCase
}

func NewTradingHandler(logger *xlogger.Logger, uc *usecase.TradingUseCase) *TradingHandler {
	metrics.Register()
	return &TradingHandler{logger: logger, uc: uc}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/trade", h.Trade)
	g.GET("/orders", h.Orders)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/balance", h.Balance)
}

func (h *TradingHandler) Trade(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("trade").Observe(time.Since(start).Seconds()) }()

	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.PlaceTrade(c.Request().Context(), req)
	if err != nil {
		return h.tradeError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// tradeError maps ledger rejections to client errors; anything else is a
// server fault.
func (h *TradingHandler) tradeError(c echo.Context, err error) error {
	if ledger.IsRejection(err) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_TRADE_REJECTED", "", err.Error(), http.StatusBadRequest).WithError(err))
	}
	metrics.APIErrors.WithLabelValues("trade").Inc()
	h.logger.Error("trade usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *TradingHandler) Orders(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("orders").Observe(time.Since(start).Seconds()) }()

	req := &models.OrdersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	orders, err := h.uc.Orders(c.Request().Context(), req.UserID, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("orders").Inc()
		h.logger.Error("orders usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, orders, int64(len(orders)))
}

func (h *TradingHandler) Portfolio(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("portfolio").Observe(time.Since(start).Seconds()) }()

	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Portfolio(c.Request().Context(), req.UserID)
	if err != nil {
		return h.accountError(c, "portfolio", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingHandler) Balance(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("balance").Observe(time.Since(start).Seconds()) }()

	req := &models.BalanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	user, err := h.uc.Balance(c.Request().Context(), req.UserID)
	if err != nil {
		return h.accountError(c, "balance", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"user_id": user.ID,
		"balance": user.Balance,
	})
}

func (h *TradingHandler) accountError(c echo.Context, endpoint string, err error) error {
	if errors.Is(err, ledger.ErrUserNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("user not found"))
	}
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
