package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtcinsights/dtc-insights/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// gatherer may be nil, which hides the metrics endpoint.
func NewRouter(cfg *config.Config, handler *Handler, gatherer prometheus.Gatherer) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)
	if cfg.Metrics.Enabled && gatherer != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1", rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
		authGroup.GET("/google/login", handler.GoogleLogin)
		authGroup.GET("/google/callback", handler.GoogleCallback)
	}

	protected := api.Group("", authMiddleware(handler.authSvc))
	{
		protected.GET("/auth/me", handler.Me)
		protected.POST("/auth/logout", handler.Logout)

		protected.GET("/history", handler.History)
		protected.GET("/history/export.csv", handler.HistoryExport)
		protected.GET("/history/view", handler.HistoryView)
		protected.POST("/history/view/apply", handler.HistoryApply)
		protected.POST("/history/view/page", handler.HistoryPage)
		protected.POST("/history/view/sort", handler.HistorySort)
		protected.POST("/history/view/reset", handler.HistoryReset)
		protected.GET("/history/view/export.csv", handler.HistoryViewExport)

		protected.GET("/overview/events", handler.Overview)
		protected.POST("/assistant/chat", handler.Chat)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
