package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/quotes"
	"github.com/shubham-shewale/stockpulse/pkg/models"
)

const (
	defaultInvestment = 10000
	defaultSimDays    = 30
	maxSimDays        = 365
)

// StockReader is the read side of the quote store.
type StockReader interface {
	Get() []models.Stock
	Find(id string) (models.Stock, bool)
}

type SubscriberCounter interface {
	Count() int
}

type apiError struct {
	Error string `json:"error"`
}

type Server struct {
	R      *gin.Engine
	Stocks StockReader
	Hub    SubscriberCounter
	Logger *zap.Logger
	Rand   quotes.Rand
	Now    func() time.Time
}

// NewServer wires the router, CORS, and request logging.
func NewServer(stocks StockReader, hub SubscriberCounter, logger *zap.Logger, corsOrigin string) *Server {
	g := gin.New()

	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	g.Use(gin.Recovery())
	g.Use(cors.New(corsConfig(corsOrigin)))

	s := &Server{
		R:      g,
		Stocks: stocks,
		Hub:    hub,
		Logger: logger,
		Rand:   quotes.GlobalRand{},
		Now:    time.Now,
	}

	g.GET("/health", s.health)
	g.GET("/api/stocks", s.listStocks)
	g.GET("/api/stocks/:id", s.getStock)
	g.GET("/api/stocks/:id/history", s.getHistory)
	g.GET("/api/stocks/:id/simulation", s.getSimulation)

	return s
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, apiError{Error: "Stock not found"})
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Error: msg})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "subscribers": s.Hub.Count()})
}

func (s *Server) listStocks(c *gin.Context) {
	c.JSON(http.StatusOK, s.Stocks.Get())
}

func (s *Server) getStock(c *gin.Context) {
	st, ok := s.Stocks.Find(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}
	c.JSON(http.StatusOK, st)
}

// getHistory serves a synthetic daily candle series ending yesterday,
// walking up from 80% of the current price.
func (s *Server) getHistory(c *gin.Context) {
	st, ok := s.Stocks.Find(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}

	tf := models.Timeframe(c.DefaultQuery("timeframe", string(models.Timeframe1M)))
	if !tf.Valid() {
		s.badRequest(c, "Invalid timeframe")
		return
	}

	c.JSON(http.StatusOK, quotes.History(s.Rand, s.Now(), tf.Days(), st.Price*0.8))
}

func (s *Server) getSimulation(c *gin.Context) {
	st, ok := s.Stocks.Find(c.Param("id"))
	if !ok {
		s.notFound(c)
		return
	}

	amount := float64(defaultInvestment)
	if raw := c.Query("amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			s.badRequest(c, "amount must be a positive number")
			return
		}
		amount = v
	}

	days := defaultSimDays
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSimDays {
			s.badRequest(c, "days must be between 1 and 365")
			return
		}
		days = v
	}

	c.JSON(http.StatusOK, quotes.Simulate(s.Rand, st, amount, days))
}
