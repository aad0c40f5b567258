package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"regime-trading-bot/internal/backtest"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"bot_running": s.bot.IsRunning(),
		"ws_clients":  s.hub.ClientCount(),
	})
}

// handleRecommendation returns the latest live recommendation.
func (s *Server) handleRecommendation(c *gin.Context) {
	rec := s.bot.Latest(c.Request.Context())
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recommendation yet"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleRefreshRecommendation forces a live tick outside the schedule.
func (s *Server) handleRefreshRecommendation(c *gin.Context) {
	rec, err := s.bot.Tick(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type backtestRequest struct {
	StartDaysAgo   int     `json:"start_days_ago" binding:"required,gt=0"`
	EndDaysAgo     int     `json:"end_days_ago"`
	StepDays       int     `json:"step_days"`
	InitialCapital float64 `json:"initial_capital" binding:"required,gt=0"`
}

// handleRunBacktest runs a backtest synchronously and returns the
// full result.
func (s *Server) handleRunBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := backtest.Config{
		StartDaysAgo:   req.StartDaysAgo,
		EndDaysAgo:     req.EndDaysAgo,
		StepDays:       req.StepDays,
		InitialCapital: req.InitialCapital,
	}

	result, err := s.bot.RunBacktest(c.Request.Context(), cfg)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleListBacktestRuns lists persisted runs for the configured symbol.
func (s *Server) handleListBacktestRuns(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter required"})
		return
	}

	runs, err := s.repo.GetBacktestRuns(c.Request.Context(), symbol, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleBacktestTrades returns the trade log of one persisted run.
func (s *Server) handleBacktestTrades(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	trades, err := s.repo.GetBacktestTrades(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleBotStart(c *gin.Context) {
	if err := s.bot.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handleBotStop(c *gin.Context) {
	s.bot.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
