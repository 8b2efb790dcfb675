// README: HTTP surface; registers routes and delegates to module services.
package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mandado/internal/http/middleware"
	"mandado/internal/modules/courier"
	"mandado/internal/modules/order"
	"mandado/internal/modules/sync"
	"mandado/internal/types"
)

// TokenRegistry stores device push tokens keyed by actor id.
// notify.RedisTokens is the production implementation.
type TokenRegistry interface {
	Register(ctx context.Context, actorID types.ID, token string) error
}

type ServerDeps struct {
	Order     *order.Service
	Sync      *sync.Service
	Courier   *courier.Service
	Tokens    TokenRegistry
	JWTSecret string
	Log       *zap.Logger
}

type Server struct {
	order   *order.Service
	sync    *sync.Service
	courier *courier.Service
	tokens  TokenRegistry
	secret  string
	log     *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		order:   deps.Order,
		sync:    deps.Sync,
		courier: deps.Courier,
		tokens:  deps.Tokens,
		secret:  deps.JWTSecret,
		log:     log,
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.log))
	r.Use(middleware.Logging(s.log))
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(s.secret))
	{
		api.POST("/orders", s.CreateOrder)
		api.GET("/orders/:id", s.GetOrder)
		api.POST("/orders/:id/transition", s.Transition)
		api.POST("/orders/:id/accept", s.AcceptOffer)

		api.GET("/sync/delta", s.Delta)

		api.GET("/couriers/availability", s.GetAvailability)
		api.PATCH("/couriers/availability", s.SetAvailability)
		api.PATCH("/businesses/open", s.SetBusinessOpen)

		api.PUT("/devices/token", s.RegisterDeviceToken)
	}

	return r
}
