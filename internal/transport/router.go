// Package transport is the demo HTTP surface in front of the matching
// core: gin handlers that validate a request, translate it into
// matchcore.Params, and hand it to the market registry. It carries no
// business logic — the account/order-routing layer a real deployment
// would put here is an explicit external collaborator the core never
// assumes anything about.
package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/clobcore/matchcore/internal/consume"
	"github.com/clobcore/matchcore/internal/market"
	"github.com/clobcore/matchcore/internal/paramvalidate"
	matcherrors "github.com/clobcore/matchcore/pkg/errors"
)

// Deps bundles everything the router needs from the rest of the process.
type Deps struct {
	Logger        *zap.Logger
	Registry      *market.Registry
	Consumer      *consume.Consumer
	Validator     *paramvalidate.Validator
	JWTSecret     string
	RateLimitRPM  int
}

// NewRouter builds the gin engine exposing the order-submission and
// consume-events endpoints, gated by bearer-token auth and a per-IP
// rate limit.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), zapLogger(d.Logger))

	rate := limiter.Rate{Period: time.Minute, Limit: int64(d.RateLimitRPM)}
	store := memory.NewStore()
	r.Use(ginlimiter.NewMiddleware(limiter.New(store, rate)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := r.Group("/v1")
	v1.Use(jwtAuth(d.JWTSecret))
	{
		v1.POST("/markets/:id/orders", placeOrderHandler(d))
		v1.POST("/markets/:id/consume-events", consumeEventsHandler(d))
	}

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func zapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// jwtAuth rejects requests without a valid bearer token signed with
// secret. An empty secret disables auth entirely, for local demo runs.
func jwtAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(c, http.StatusUnauthorized, matcherrors.New(matcherrors.ErrUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}
		tokenStr := header[len(prefix):]
		_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeError(c, http.StatusUnauthorized, matcherrors.New(matcherrors.ErrUnauthorized, "invalid bearer token").WithCause(err))
			c.Abort()
			return
		}
		c.Next()
	}
}

func placeOrderHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		marketID := c.Param("id")
		var req paramvalidate.NewOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, matcherrors.New(matcherrors.ErrInvalidParams, "malformed request body").WithCause(err))
			return
		}
		req.MarketID = marketID
		if err := d.Validator.Validate(req); err != nil {
			writeError(c, http.StatusBadRequest, matcherrors.New(matcherrors.ErrInvalidParams, err.Error()))
			return
		}
		params, err := paramvalidate.ToParams(req)
		if err != nil {
			writeError(c, http.StatusBadRequest, matcherrors.New(matcherrors.ErrInvalidParams, err.Error()))
			return
		}

		summary, err := d.Registry.PlaceOrder(c.Request.Context(), marketID, params)
		if err != nil {
			writeMatchError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_asset_qty": summary.TotalAssetQty,
			"total_quote_qty": summary.TotalQuoteQty,
			"posted":          summary.PostedOrderID != nil,
		})
	}
}

func consumeEventsHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		marketID := c.Param("id")
		var req paramvalidate.ConsumeEventsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, matcherrors.New(matcherrors.ErrInvalidParams, "malformed request body").WithCause(err))
			return
		}
		req.MarketID = marketID
		if err := d.Validator.Validate(req); err != nil {
			writeError(c, http.StatusBadRequest, matcherrors.New(matcherrors.ErrInvalidParams, err.Error()))
			return
		}

		result, err := d.Registry.ConsumeEvents(c.Request.Context(), marketID, d.Consumer, consume.Params{
			NumberOfEntriesToConsume: req.NumberOfEntriesToConsume,
			RewardTarget:             req.RewardTarget,
		})
		if err != nil {
			writeMatchError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"entries_consumed": result.EntriesConsumed,
			"reward":           result.Reward,
		})
	}
}

func writeMatchError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch matcherrors.Code(err) {
	case matcherrors.ErrWouldSelfTrade, matcherrors.ErrInvalidParams, matcherrors.ErrInvalidPrice, matcherrors.ErrInvalidQuantity, matcherrors.ErrInvalidSide:
		status = http.StatusBadRequest
	case matcherrors.ErrNoOperations:
		status = http.StatusConflict
	case matcherrors.ErrMarketNotFound:
		status = http.StatusNotFound
	case matcherrors.ErrEventQueueFull, matcherrors.ErrSlabOutOfSpace, matcherrors.ErrInsufficientEscrow:
		status = http.StatusServiceUnavailable
	}
	writeError(c, status, err)
}

func writeError(c *gin.Context, status int, err error) {
	var me *matcherrors.MatchError
	if matcherrors.As(err, &me) {
		c.JSON(status, gin.H{"error": gin.H{"code": me.Code, "message": me.Message}})
		return
	}
	c.JSON(status, gin.H{"error": gin.H{"code": "INTERNAL_ERROR", "message": err.Error()}})
}
