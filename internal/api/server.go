// Package api exposes the screener over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ChipSentinel/internal/metrics"
	"ChipSentinel/internal/screener"
)

// MaxScanSymbols caps the symbols one /api/scan request may name.
const MaxScanSymbols = 50

// Server wires HTTP endpoints around the screener.
type Server struct {
	Router    *gin.Engine
	Screener  *screener.Screener
	Watchlist []string
	Health    *metrics.HealthStatus

	// scanLimiter spaces out on-demand scans; each one costs two provider calls per symbol.
	scanLimiter *rate.Limiter
}

// NewServer builds the router. gatherer backs /metrics and may be nil to omit it.
func NewServer(scr *screener.Screener, watchlist []string, health *metrics.HealthStatus, gatherer prometheus.Gatherer) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())

	s := &Server{
		Router:      r,
		Screener:    scr,
		Watchlist:   watchlist,
		Health:      health,
		scanLimiter: rate.NewLimiter(rate.Every(30*time.Second), 2),
	}
	s.routes(gatherer)
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.Router.GET("/healthz", s.health)
	if gatherer != nil {
		s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/stocks/:symbol", s.getStock)
		api.GET("/scan", s.getScan)
		api.GET("/thresholds", s.getThresholds)
	}
}
