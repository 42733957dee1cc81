package web

import (
	"context"
	"fmt"

	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/KNICEX/quantflow/internal/service/strategy"
	"github.com/gin-gonic/gin"
)

// StrategyService is what the handlers need from the strategy service.
type StrategyService interface {
	Create(ctx context.Context, req strategy.CreateReq) (strategy.Strategy, error)
	Get(ctx context.Context, id string) (strategy.Strategy, error)
	List(ctx context.Context) ([]strategy.Strategy, error)
	Update(ctx context.Context, id string, req strategy.UpdateReq) (strategy.Strategy, error)
	SetStatus(ctx context.Context, id string, status string) error
	Delete(ctx context.Context, id string) error
	Settings(ctx context.Context) (repo.GlobalConfig, error)
	SaveSettings(ctx context.Context, cfg repo.GlobalConfig) error
	Generate(ctx context.Context, prompt string) (string, error)
	Account(ctx context.Context) (strategy.Account, error)
}

var _ StrategyService = (*strategy.Service)(nil)

type Handler struct {
	svc StrategyService
}

func NewHandler(svc StrategyService) *Handler {
	return &Handler{svc: svc}
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

type generateReq struct {
	Prompt string `json:"prompt" binding:"required"`
}

type generateResp struct {
	Code string `json:"code"`
}

func (h *Handler) StrategyList() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.svc.List(c.Request.Context())
		JSON(c, err, res)
	}
}

func (h *Handler) StrategyCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req strategy.CreateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := h.svc.Create(c.Request.Context(), req)
		JSON(c, err, res)
	}
}

func (h *Handler) StrategyGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
		JSON(c, err, res)
	}
}

func (h *Handler) StrategyUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req strategy.UpdateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
		JSON(c, err, res)
	}
}

func (h *Handler) StrategySetStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		id := c.Param("id")
		if err := h.svc.SetStatus(c.Request.Context(), id, req.Status); err != nil {
			JSON(c, err, nil)
			return
		}
		res, err := h.svc.Get(c.Request.Context(), id)
		JSON(c, err, res)
	}
}

func (h *Handler) StrategyDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.svc.Delete(c.Request.Context(), c.Param("id"))
		JSON(c, err, gin.H{"id": c.Param("id")})
	}
}

// SettingsGet 返回的 secretKey 已打码
func (h *Handler) SettingsGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.svc.Settings(c.Request.Context())
		JSON(c, err, strategy.MaskSettings(res))
	}
}

func (h *Handler) SettingsSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req repo.GlobalConfig
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := h.svc.SaveSettings(c.Request.Context(), req); err != nil {
			JSON(c, fmt.Errorf("save settings: %w", err), nil)
			return
		}
		res, err := h.svc.Settings(c.Request.Context())
		JSON(c, err, strategy.MaskSettings(res))
	}
}

func (h *Handler) Account() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.svc.Account(c.Request.Context())
		JSON(c, err, res)
	}
}

func (h *Handler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		JSON(c, nil, gin.H{"status": "ok"})
	}
}

func (h *Handler) Generate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		code, err := h.svc.Generate(c.Request.Context(), req.Prompt)
		JSON(c, err, generateResp{Code: code})
	}
}
