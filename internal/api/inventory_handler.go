package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/inventory"
	"github.com/taoyao-code/swap-server/internal/storage"
)

// InventoryHandler 库存视图与巡检接口
type InventoryHandler struct {
	auditor *inventory.Auditor
	logger  *zap.Logger
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(auditor *inventory.Auditor, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{auditor: auditor, logger: logger}
}

// StationInventory 站点库存
// @Summary 站点库存
// @Description 按电池柜、仓位列出站点库存及各类型可用数量
// @Tags 库存
// @Produce json
// @Security ApiKeyAuth
// @Param station_id path int true "站点ID"
// @Success 200 {object} StandardResponse{data=inventory.StationView}
// @Failure 404 {object} StandardResponse "站点不存在"
// @Router /api/v1/stations/{station_id}/inventory [get]
func (h *InventoryHandler) StationInventory(c *gin.Context) {
	id, ok := pathID(c, "station_id")
	if !ok {
		return
	}
	snap, err := h.auditor.Snapshot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperr.NotFound(apperr.CodeStationNotFound, "station %d not found", id)
		}
		respondWithError(c, h.logger, err)
		return
	}
	view, found := inventory.BuildStationView(snap, id)
	if !found {
		respondWithError(c, h.logger, apperr.NotFound(apperr.CodeStationNotFound, "station %d not found", id))
		return
	}
	respondOK(c, "success", view)
}

// Audit 库存一致性巡检
// @Summary 库存一致性巡检
// @Description 默认返回最近一次定时巡检结果；fresh=true 或尚无结果时立即执行
// @Tags 库存
// @Produce json
// @Security ApiKeyAuth
// @Param fresh query bool false "立即执行巡检"
// @Success 200 {object} StandardResponse{data=inventory.Report}
// @Router /api/v1/inventory/audit [get]
func (h *InventoryHandler) Audit(c *gin.Context) {
	rep := h.auditor.Last()
	if rep == nil || c.Query("fresh") == "true" {
		var err error
		rep, err = h.auditor.Run(c.Request.Context())
		if err != nil {
			respondWithError(c, h.logger, apperr.Internal(err, "inventory audit"))
			return
		}
	}
	msg := "库存一致"
	if !rep.OK() {
		msg = "发现库存不一致"
	}
	respondOK(c, msg, rep)
}
