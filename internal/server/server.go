package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/inmoflow/inmoflow/internal/audit"
	"github.com/inmoflow/inmoflow/internal/config"
	"github.com/inmoflow/inmoflow/internal/invoice"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	obslogger "github.com/inmoflow/inmoflow/internal/observability/logger"
	obsmetrics "github.com/inmoflow/inmoflow/internal/observability/metrics"
)

var Module = fx.Module("http.server",
	audit.Module,
	invoice.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:             log,
		ErrorClassifier: classifyError,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

type ServerParam struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.Logger
	Metrics    *obsmetrics.Metrics
	InvoiceSvc invoicedomain.Service
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	metrics    *obsmetrics.Metrics
	invoiceSvc invoicedomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:     p.Engine,
		log:        p.Log.Named("http.server"),
		metrics:    p.Metrics,
		invoiceSvc: p.InvoiceSvc,
	}
}

func registerRoutes(s *Server) {
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.Use(TenantMiddleware())
	{
		v1.POST("/invoices", s.CreateInvoice)
		v1.GET("/invoices", s.ListInvoices)
		v1.GET("/invoices/:id", s.GetInvoiceByID)
		v1.PUT("/invoices/:id", s.UpdateDraftInvoice)
		v1.DELETE("/invoices/:id", s.RemoveInvoice)
		v1.POST("/invoices/:id/emit", s.EmitInvoice)
		v1.POST("/invoices/:id/cancel", s.CancelInvoice)
	}
}

func run(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
