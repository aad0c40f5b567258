// Package api exposes the bot over HTTP: recommendation and backtest
// endpoints plus a websocket stream of engine events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"regime-trading-bot/config"
	"regime-trading-bot/internal/bot"
	"regime-trading-bot/internal/database"
	"regime-trading-bot/internal/events"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	bot        *bot.Bot
	repo       *database.Repository // nil when persistence is disabled
	hub        *WSHub
	config     config.ServerConfig
	logger     zerolog.Logger
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, b *bot.Bot, repo *database.Repository, eventBus *events.EventBus, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router: router,
		bot:    b,
		repo:   repo,
		config: cfg,
		logger: logger.With().Str("component", "api").Logger(),
	}

	server.hub = NewWSHub(server.logger)
	go server.hub.Run()

	// Stream every engine event to websocket subscribers.
	eventBus.SubscribeAll(func(event events.Event) {
		server.hub.BroadcastEvent(event)
	})

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.GET("/api/recommendation", s.handleRecommendation)
	s.router.POST("/api/recommendation/refresh", s.handleRefreshRecommendation)
	s.router.POST("/api/backtest", s.handleRunBacktest)
	s.router.GET("/api/backtest/runs", s.handleListBacktestRuns)
	s.router.GET("/api/backtest/runs/:id/trades", s.handleBacktestTrades)
	s.router.POST("/api/bot/start", s.handleBotStart)
	s.router.POST("/api/bot/stop", s.handleBotStop)
	s.router.GET("/ws", s.handleWebSocket)
}

// Start begins serving. Blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
