package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profile":        s.Meta.Profile,
		"symbols":        s.Meta.Symbols,
		"version":        s.Meta.Version,
		"tick":           s.Engine.Tick(),
		"paused":         s.Engine.Paused(),
		"open_positions": s.Engine.Ledger().Count(),
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

type positionResponse struct {
	Symbol        string  `json:"symbol"`
	State         string  `json:"state"`
	EntryPrice    float64 `json:"entry_price"`
	Quantity      float64 `json:"qty"`
	DCALevel      int     `json:"dca_level"`
	PeakPrice     float64 `json:"peak_price"`
	LastFillPrice float64 `json:"last_fill_price"`
	Age           int     `json:"age"`
	CooldownLeft  int     `json:"cooldown_left"`
}

func (s *Server) getPositions(c *gin.Context) {
	led := s.Engine.Ledger()
	out := make([]positionResponse, 0, led.Count())
	for _, sym := range led.Symbols() {
		pos := led.Get(sym)
		if pos == nil {
			continue
		}
		out = append(out, positionResponse{
			Symbol:        pos.Symbol,
			State:         string(s.Engine.State(sym)),
			EntryPrice:    pos.EntryPrice,
			Quantity:      pos.Quantity,
			DCALevel:      pos.DCALevel,
			PeakPrice:     pos.PeakPrice,
			LastFillPrice: pos.LastFillPrice,
			Age:           pos.Age,
			CooldownLeft:  s.Engine.Governor().CooldownRemaining(sym),
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (s *Server) getBalance(c *gin.Context) {
	snap := s.Balance.Get()
	c.JSON(http.StatusOK, gin.H{
		"total":     snap.Total,
		"available": snap.Available,
		"reserved":  snap.Reserved,
	})
}

func (s *Server) getTrades(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not enabled"})
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	trades, err := s.DB.ListTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getFills(c *gin.Context) {
	if s.Exec == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "executor not attached"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fills":     s.Exec.Fills(),
		"fees_paid": s.Exec.FeesPaid(),
		"rejected":  s.Exec.Rejected(),
	})
}

func (s *Server) getRiskMetrics(c *gin.Context) {
	m := s.Engine.Governor().Metrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":       m,
		"win_rate":      m.WinRate(),
		"profit_factor": m.ProfitFactor(),
	})
}

func (s *Server) pauseEngine(c *gin.Context) {
	s.Engine.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) resumeEngine(c *gin.Context) {
	s.Engine.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}
