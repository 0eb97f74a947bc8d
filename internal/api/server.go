// Package api serves the pool engine over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolsim/internal/aggregate"
	"poolsim/internal/metrics"
	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/scenario"
	"poolsim/internal/swap"
)

// Options configures a Server.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Pool names the pool in window metrics.
	Pool string
}

// Server exposes one engine as JSON endpoints.
type Server struct {
	engine  *pool.Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
	pool    string
	router  *gin.Engine
}

func NewServer(engine *pool.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.Pool
	if name == "" {
		name = "default"
	}

	s := &Server{
		engine:  engine,
		metrics: opts.Metrics,
		logger:  logger,
		pool:    name,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	g := s.router.Group("/api")
	g.GET("/pool", s.getPool)
	g.POST("/pool", s.applyAs(model.OpCreate))
	g.POST("/liquidity/add", s.applyAs(model.OpAdd))
	g.POST("/liquidity/remove", s.applyAs(model.OpRemove))
	g.GET("/liquidity/paired", s.pairedAmount)
	g.POST("/swap", s.applyAs(model.OpSwap))
	g.POST("/ops", s.applyAs(""))
	g.GET("/quote", s.quote)
	g.GET("/quote/reverse", s.quoteReverse)
	g.GET("/providers", s.listProviders)
	g.GET("/providers/:id", s.getProvider)
	g.GET("/events", s.listEvents)
	g.GET("/windows", s.listWindows)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) getPool(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

// applyAs decodes an operation body and applies it. A non-empty op overrides
// the op field of the body.
func (s *Server) applyAs(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.Operation
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if op != "" {
			req.Op = op
		}

		outcome, err := scenario.Apply(s.engine, req)
		if s.metrics != nil {
			s.metrics.Observe(req.Op, err, s.engine.Snapshot())
		}
		if err != nil {
			s.writeError(c, err)
			return
		}
		if outcome.Quote != nil {
			c.JSON(http.StatusOK, outcome.Quote)
			return
		}
		c.JSON(http.StatusOK, outcome.Result)
	}
}

func (s *Server) quote(c *gin.Context) {
	direction, amount, ok := directionAndAmount(c, "amount_in")
	if !ok {
		return
	}
	quote, err := s.engine.Quote(direction, amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) quoteReverse(c *gin.Context) {
	direction, amount, ok := directionAndAmount(c, "amount_out")
	if !ok {
		return
	}
	quote, err := s.engine.QuoteIn(direction, amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

type pairedResponse struct {
	AmountA decimal.Decimal `json:"amount_a"`
	AmountB decimal.Decimal `json:"amount_b"`
}

// pairedAmount fills in the ratio-matched counterpart of amount_a or
// amount_b for add and remove forms.
func (s *Server) pairedAmount(c *gin.Context) {
	snapshot := s.engine.Snapshot()
	if !snapshot.Initialized {
		s.writeError(c, pool.ErrPoolNotInitialized)
		return
	}

	if raw := c.Query("amount_a"); raw != "" {
		amountA, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid amount_a"})
			return
		}
		c.JSON(http.StatusOK, pairedResponse{
			AmountA: amountA,
			AmountB: swap.PairedAmount(amountA, snapshot.ReserveA, snapshot.ReserveB),
		})
		return
	}
	amountB, err := decimal.NewFromString(c.Query("amount_b"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "amount_a or amount_b is required"})
		return
	}
	c.JSON(http.StatusOK, pairedResponse{
		AmountA: swap.PairedAmount(amountB, snapshot.ReserveB, snapshot.ReserveA),
		AmountB: amountB,
	})
}

func (s *Server) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Ledger())
}

func (s *Server) getProvider(c *gin.Context) {
	provider := c.Param("id")
	c.JSON(http.StatusOK, model.LedgerEntry{Provider: provider, Shares: s.engine.Shares(provider)})
}

func (s *Server) listEvents(c *gin.Context) {
	var since uint64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid since"})
			return
		}
		since = parsed
	}
	events := s.engine.EventsSince(since)
	if events == nil {
		events = []model.EventRecord{}
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) listWindows(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("window", "5m"))
	if err != nil || window < time.Second {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid window"})
		return
	}

	events := s.engine.Events()
	records := make([]model.EventRecordJSON, 0, len(events))
	for _, event := range events {
		record, err := event.ToJSON()
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		records = append(records, record)
	}

	windows, err := aggregate.Aggregate(s.pool, records, uint64(window/time.Second))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if windows == nil {
		windows = []model.PoolWindowMetrics{}
	}
	c.JSON(http.StatusOK, windows)
}

func directionAndAmount(c *gin.Context, amountKey string) (model.Direction, decimal.Decimal, bool) {
	direction, err := model.ParseDirection(c.Query("direction"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: pool.Code(pool.ErrInvalidAmount)})
		return "", decimal.Zero, false
	}
	amount, err := decimal.NewFromString(c.Query(amountKey))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid " + amountKey, Code: pool.Code(pool.ErrInvalidAmount)})
		return "", decimal.Zero, false
	}
	return direction, amount, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := pool.Code(err)
	if code == "" {
		s.logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(statusFor(err), errorResponse{Error: err.Error(), Code: code})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pool.ErrInvalidAmount), errors.Is(err, pool.ErrInvalidFeeConfig):
		return http.StatusBadRequest
	case errors.Is(err, pool.ErrAlreadyInitialized), errors.Is(err, pool.ErrPoolNotInitialized):
		return http.StatusConflict
	case errors.Is(err, pool.ErrInsufficientShares),
		errors.Is(err, pool.ErrInsufficientOutputLiquidity),
		errors.Is(err, pool.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
