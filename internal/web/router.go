package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

type Router struct {
	h *Handler
}

func NewRouter(h *Handler) *Router {
	return &Router{h: h}
}

func (r *Router) Load(g *gin.Engine) {
	api := g.Group("/api")

	s := api.Group("/strategies")
	{
		s.GET("", r.h.StrategyList())
		s.POST("", r.h.StrategyCreate())
		s.GET("/:id", r.h.StrategyGet())
		s.PUT("/:id", r.h.StrategyUpdate())
		s.PUT("/:id/status", r.h.StrategySetStatus())
		s.DELETE("/:id", r.h.StrategyDelete())
	}

	api.GET("/settings", r.h.SettingsGet())
	api.PUT("/settings", r.h.SettingsSave())
	api.POST("/settings", r.h.SettingsSave())
	api.GET("/account", r.h.Account())
	api.GET("/health", r.h.Health())
	// 根据描述生成策略代码
	api.POST("/generate", r.h.Generate())
}

// NewEngine builds a gin engine with recovery, request logging, CORS and all routes.
func NewEngine(h *Handler, logger *slog.Logger) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery(), Logger(logger), CORS())
	NewRouter(h).Load(g)
	return g
}
