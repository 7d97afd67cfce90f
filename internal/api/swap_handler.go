package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/swap"
)

// SwapHandler 换电记录查询与撤销接口
type SwapHandler struct {
	resolver *swap.Resolver
	logger   *zap.Logger
}

// NewSwapHandler 创建换电记录处理器
func NewSwapHandler(resolver *swap.Resolver, logger *zap.Logger) *SwapHandler {
	return &SwapHandler{resolver: resolver, logger: logger}
}

// CancelSwapRequest 撤销换电请求
type CancelSwapRequest struct {
	Mode   string `json:"mode" binding:"required"` // soft=暂缓, permanent=撤销并归还电池
	Reason string `json:"reason"`
}

// GetSwap 查询换电记录
// @Summary 查询换电记录
// @Tags 换电
// @Produce json
// @Security ApiKeyAuth
// @Param swap_id path string true "换电记录ID"
// @Success 200 {object} StandardResponse{data=SwapView}
// @Failure 404 {object} StandardResponse "记录不存在"
// @Router /api/v1/swaps/{swap_id} [get]
func (h *SwapHandler) GetSwap(c *gin.Context) {
	id, ok := pathID(c, "swap_id")
	if !ok {
		return
	}
	sw, err := h.resolver.GetSwap(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, "success", newSwapView(sw))
}

// CancelSwap 撤销换电
// @Summary 撤销换电
// @Description soft：WAITING_USER_RETRY 转 CANCELLED_TEMP（幂等）；permanent：归还电池并撤销记录。
// @Tags 换电
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param swap_id path string true "换电记录ID"
// @Param request body CancelSwapRequest true "撤销参数"
// @Success 200 {object} StandardResponse{data=swap.CancelResult}
// @Failure 400 {object} StandardResponse "模式无效"
// @Failure 404 {object} StandardResponse "记录不存在"
// @Failure 409 {object} StandardResponse "记录状态不允许或正在处理"
// @Router /api/v1/swaps/{swap_id}/cancel [post]
func (h *SwapHandler) CancelSwap(c *gin.Context) {
	id, ok := pathID(c, "swap_id")
	if !ok {
		return
	}
	var req CancelSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求: "+err.Error())
		return
	}
	res, err := h.resolver.CancelSwap(c.Request.Context(), id, coremodel.CancelMode(req.Mode), req.Reason)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, res.Message, res)
}
