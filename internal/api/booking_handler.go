package api

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/api/middleware"
	"github.com/taoyao-code/swap-server/internal/booking"
	"github.com/taoyao-code/swap-server/internal/swap"
)

// BookingHandler 预约与换电提交接口
type BookingHandler struct {
	bookings *booking.Service
	engine   *swap.Engine
	logger   *zap.Logger
}

// NewBookingHandler 创建预约处理器
func NewBookingHandler(bookings *booking.Service, engine *swap.Engine, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, engine: engine, logger: logger}
}

// CommitSwapRequest 换电提交请求
type CommitSwapRequest struct {
	IncomingBatteryIDs []int64 `json:"incoming_battery_ids"` // 用户车上拆下的电池ID，数量须等于剩余需求
	StaffID            int64   `json:"staff_id"`             // 操作人员；携带 X-Staff-Token 时以令牌为准
}

// ReasonRequest 取消/失败原因
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// CommitSwap 提交换电
// @Summary 提交换电
// @Description 对预约执行换电。前置校验失败整体拒绝；通过后逐块处理，单块失败体现在该块结果中。只请求一块电池时 data 为单个对象。
// @Tags 换电
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param booking_id path int true "预约ID"
// @Param X-Staff-Token header string false "工作人员会话令牌"
// @Param request body CommitSwapRequest true "换电参数"
// @Success 200 {object} StandardResponse{data=[]swap.Outcome} "逐块结果"
// @Failure 400 {object} StandardResponse "参数错误"
// @Failure 404 {object} StandardResponse "预约不存在"
// @Failure 409 {object} StandardResponse "预约状态不允许"
// @Failure 422 {object} StandardResponse "站点无可用电池"
// @Router /api/v1/bookings/{booking_id}/swaps [post]
func (h *BookingHandler) CommitSwap(c *gin.Context) {
	bookingID, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	var req CommitSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求: "+err.Error())
		return
	}

	cmd := swap.CommitRequest{
		BookingID:          bookingID,
		IncomingBatteryIDs: req.IncomingBatteryIDs,
		StaffID:            req.StaffID,
	}
	if staffID, subject, ok := middleware.StaffFromContext(c); ok {
		cmd.Caller = &swap.Caller{StaffID: staffID, Subject: subject}
	}

	outcomes, err := h.engine.CommitSwap(c.Request.Context(), cmd)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	if len(req.IncomingBatteryIDs) == 1 && len(outcomes) == 1 {
		respondOK(c, outcomes[0].Message, outcomes[0])
		return
	}
	respondOK(c, "换电已处理", outcomes)
}

// GetBooking 查询预约详情
// @Summary 查询预约
// @Tags 预约
// @Produce json
// @Security ApiKeyAuth
// @Param booking_id path int true "预约ID"
// @Success 200 {object} StandardResponse{data=BookingDetailView}
// @Failure 404 {object} StandardResponse "预约不存在"
// @Router /api/v1/bookings/{booking_id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	detail, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, "success", newBookingDetailView(detail))
}

// ConfirmPayment 支付成功回调
// @Summary 确认支付
// @Tags 预约
// @Produce json
// @Security ApiKeyAuth
// @Param booking_id path int true "预约ID"
// @Success 200 {object} StandardResponse{data=BookingView}
// @Failure 409 {object} StandardResponse "预约状态不允许"
// @Router /api/v1/bookings/{booking_id}/payment-confirmed [post]
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	b, err := h.bookings.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, "支付已确认", newBookingView(b))
}

// CancelBooking 取消预约
// @Summary 取消预约
// @Description 预约开始前 cutoff 时间窗内不可取消；已完成的预约需通过撤销换电处理。
// @Tags 预约
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param booking_id path int true "预约ID"
// @Param request body ReasonRequest false "取消原因"
// @Success 200 {object} StandardResponse{data=BookingView}
// @Failure 409 {object} StandardResponse "预约状态不允许或已过取消时限"
// @Router /api/v1/bookings/{booking_id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, "预约已取消", newBookingView(b))
}

// FailBooking 预约失败（支付或到站超时）
// @Summary 预约失败
// @Tags 预约
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param booking_id path int true "预约ID"
// @Param request body ReasonRequest false "失败原因"
// @Success 200 {object} StandardResponse{data=BookingView}
// @Failure 409 {object} StandardResponse "预约状态不允许"
// @Router /api/v1/bookings/{booking_id}/fail [post]
func (h *BookingHandler) FailBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}
	b, err := h.bookings.Fail(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	respondOK(c, "预约已置为失败", newBookingView(b))
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// bindOptional 请求体可以为空
func bindOptional(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "无效的请求: "+err.Error())
		return false
	}
	return true
}
