package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *logging.LoggerV2
}

// New builds the router. gatherer backs GET /metrics.
func New(h *handlers.Handlers, auth middleware.SessionValidator, gatherer prometheus.Gatherer, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	s := &Server{
		config: cfg,
		router: router,
		logger: logging.NewLoggerV2("server"),
	}

	s.setupRoutes(h, auth, gatherer)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes(h *handlers.Handlers, auth middleware.SessionValidator, gatherer prometheus.Gatherer) {
	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/live", h.Live)
	s.router.GET("/version", h.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1", middleware.Auth(auth))
	{
		invoices := documentRoutes(v1, "/invoices", models.DocumentKindInvoice, h)
		invoices.POST("/:id/send", h.SendInvoice)

		documentRoutes(v1, "/order-forms", models.DocumentKindOrderForm, h)
		documentRoutes(v1, "/purchase-orders", models.DocumentKindPurchaseOrder, h)

		v1.POST("/totals/preview", h.PreviewTotals)
	}
}

func documentRoutes(parent *gin.RouterGroup, path string, kind models.DocumentKind, h *handlers.Handlers) *gin.RouterGroup {
	g := parent.Group(path)
	g.POST("", h.CreateDocument(kind))
	g.GET("", h.ListDocuments(kind))
	g.GET("/:id", h.GetDocument(kind))
	g.PUT("/:id", h.UpdateDocument(kind))
	return g
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
