package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ChipSentinel/internal/collector"
	"ChipSentinel/internal/config"
	"ChipSentinel/internal/screener"
	"ChipSentinel/internal/strategy"
)

var symbolPattern = regexp.MustCompile(`^[0-9A-Z]{1,10}$`)

func (s *Server) health(c *gin.Context) {
	if s.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}
	c.JSON(http.StatusOK, s.Health.Snapshot())
}

func (s *Server) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"thresholds":      s.Screener.Thresholds,
		"single_lookback": s.Screener.SingleLookback,
		"scan_lookback":   s.Screener.ScanLookback,
		"watchlist":       s.Watchlist,
	})
}

func (s *Server) getStock(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if !symbolPattern.MatchString(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid symbol"})
		return
	}
	opts, err := s.parseOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.Screener.AnalyzeWith(c.Request.Context(), symbol, opts)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, collector.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for symbol", "symbol": symbol})
	case errors.Is(err, strategy.ErrNotEnoughHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
	case errors.Is(err, strategy.ErrInvalidThresholds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "symbol": symbol})
	}
}

func (s *Server) getScan(c *gin.Context) {
	symbols := s.Watchlist
	if raw := c.Query("symbols"); raw != "" {
		symbols = nil
		for _, part := range strings.Split(raw, ",") {
			sym := strings.ToUpper(strings.TrimSpace(part))
			if sym == "" {
				continue
			}
			if !symbolPattern.MatchString(sym) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid symbol: " + sym})
				return
			}
			symbols = append(symbols, sym)
		}
		// Only symbols= overrides are capped.
		if len(symbols) > MaxScanSymbols {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many symbols, max " + strconv.Itoa(MaxScanSymbols)})
			return
		}
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no symbols to scan"})
		return
	}
	opts, err := s.parseOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.scanLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "scan rate limit exceeded"})
		return
	}

	c.JSON(http.StatusOK, s.Screener.ScanWith(c.Request.Context(), symbols, opts))
}

// parseOptions reads the lookback and threshold overrides from the query string.
func (s *Server) parseOptions(c *gin.Context) (screener.Options, error) {
	var opts screener.Options
	if v := c.Query("lookback"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("lookback must be an integer")
		}
		if err := config.ValidateLookback(days); err != nil {
			return opts, errors.New("lookback " + err.Error())
		}
		opts.LookbackDays = days
	}

	th := s.Screener.Thresholds
	changed := false
	for _, key := range []string{"volume_multiple", "institutional_ratio_pct", "strong_candle_pct"} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.New(key + " must be a number")
		}
		switch key {
		case "volume_multiple":
			th.VolumeMultiple = f
		case "institutional_ratio_pct":
			th.InstitutionalRatioPct = f
		case "strong_candle_pct":
			th.StrongCandlePct = f
		}
		changed = true
	}
	if v := c.Query("streak_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("streak_days must be an integer")
		}
		th.StreakDays = n
		changed = true
	}
	if v := c.Query("require_strong_candle"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("require_strong_candle must be a boolean")
		}
		th.RequireStrongCandle = b
		changed = true
	}
	if changed {
		if err := th.Validate(); err != nil {
			return opts, err
		}
		opts.Thresholds = &th
	}
	if opts.LookbackDays > 0 {
		if err := config.CoversThresholds(opts.LookbackDays, th); err != nil {
			return opts, errors.New("lookback " + err.Error())
		}
	}
	return opts, nil
}
