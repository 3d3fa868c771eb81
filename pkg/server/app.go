package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lblaseygg/minty/internal/usecase"
	"github.com/lblaseygg/minty/pkg/config"
	xhttp "github.com/lblaseygg/minty/pkg/http"
	"github.com/lblaseygg/minty/pkg/http/middleware"
	pkgkafka "github.com/lblaseygg/minty/pkg/kafka"
	applogger "github.com/lblaseygg/minty/pkg/logger"
	"github.com/lblaseygg/minty/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the application lifecycle: HTTP API, the live tick
// collector, the fills consumer and the background retrain queue.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger

	handlers        []xhttp.Handler
	collector       *usecase.TickCollector
	consumer        *pkgkafka.Consumer
	consumerHandler pkgkafka.MessageHandler
	queue           *queue.RedisQueue
	closers         []io.Closer

	httpServer *xhttp.Server
}

type Option func(*App)

// WithHandlers registers HTTP route handlers.
func WithHandlers(handlers ...xhttp.Handler) Option {
	return func(a *App) { a.handlers = append(a.handlers, handlers...) }
}

// WithCollector attaches the live tick collector.
func WithCollector(c *usecase.TickCollector) Option {
	return func(a *App) { a.collector = c }
}

// WithConsumer attaches the Kafka consumer and its message handler.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) { a.consumer = c; a.consumerHandler = h }
}

// WithQueue attaches the background job queue.
func WithQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.queue = q }
}

// WithClosers registers resources to close on shutdown, in order.
func WithClosers(closers ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, closers...) }
}

// New creates a new App instance.
func New(cfg *config.Config, logger *applogger.Logger, opts ...Option) *App {
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type routes struct {
	handlers []xhttp.Handler
}

func (r routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(routes{handlers: a.handlers},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsMiddleware(middleware.Metrics(a.logger, time.Second)),
	)

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("tick collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("tick collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
	}

	if a.consumer != nil && a.consumerHandler != nil {
		a.consumer.RegisterHandler(a.consumerHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("fills consumer started", applogger.String("topic", a.consumerHandler.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.logger.Error("retrain queue start error", applogger.Error(err))
		} else {
			a.logger.Info("retrain queue started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("tick collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("retrain queue stop error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
