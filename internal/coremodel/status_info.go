package coremodel

// StatusInfo 状态的展示信息（用于 API 响应）
type StatusInfo struct {
	Code        string `json:"code"`         // 状态码
	DisplayText string `json:"display_text"` // 显示文本（中文）
	Description string `json:"description"`  // 详细描述
}

var slotStatusInfo = map[SlotStatus]StatusInfo{
	SlotEmpty:    {Code: string(SlotEmpty), DisplayText: "空闲", Description: "仓位为空，可放入电池"},
	SlotOccupied: {Code: string(SlotOccupied), DisplayText: "占用", Description: "仓位内有可用电池"},
	SlotReserved: {Code: string(SlotReserved), DisplayText: "隔离", Description: "仓位内电池已隔离待维护或被暂扣，不参与发放"},
}

var batteryStatusInfo = map[BatteryStatus]StatusInfo{
	BatteryAvailable:     {Code: string(BatteryAvailable), DisplayText: "可用", Description: "已满足换出条件"},
	BatteryInUse:         {Code: string(BatteryInUse), DisplayText: "使用中", Description: "已换出，在用户车辆上"},
	BatteryCharging:      {Code: string(BatteryCharging), DisplayText: "充电中", Description: "在仓位内充电"},
	BatteryWaitingCharge: {Code: string(BatteryWaitingCharge), DisplayText: "待充电", Description: "等待充电"},
	BatteryMaintenance:   {Code: string(BatteryMaintenance), DisplayText: "维护", Description: "健康度不足，等待维护"},
	BatteryDamaged:       {Code: string(BatteryDamaged), DisplayText: "损坏", Description: "已损坏，不可使用"},
}

// Info 获取仓位状态展示信息
func (s SlotStatus) Info() StatusInfo {
	if info, ok := slotStatusInfo[s]; ok {
		return info
	}
	return StatusInfo{Code: string(s), DisplayText: "未知", Description: "未知状态"}
}

// Info 获取电池状态展示信息
func (s BatteryStatus) Info() StatusInfo {
	if info, ok := batteryStatusInfo[s]; ok {
		return info
	}
	return StatusInfo{Code: string(s), DisplayText: "未知", Description: "未知状态"}
}

var bookingStatusInfo = map[BookingStatus]StatusInfo{
	BookingPendingPayment:  {Code: string(BookingPendingPayment), DisplayText: "待支付", Description: "预约已创建，等待支付"},
	BookingPendingSwapping: {Code: string(BookingPendingSwapping), DisplayText: "待换电", Description: "已支付，等待到站换电"},
	BookingCompleted:       {Code: string(BookingCompleted), DisplayText: "已完成", Description: "预约电池已全部换出"},
	BookingCancelled:       {Code: string(BookingCancelled), DisplayText: "已取消", Description: "预约已取消"},
	BookingFailed:          {Code: string(BookingFailed), DisplayText: "失败", Description: "支付或到站超时"},
}

var swapStatusInfo = map[SwapStatus]StatusInfo{
	SwapSuccess:          {Code: string(SwapSuccess), DisplayText: "成功", Description: "换电完成"},
	SwapWaitingUserRetry: {Code: string(SwapWaitingUserRetry), DisplayText: "待用户确认", Description: "电池类型不符，等待用户重新换电或取消"},
	SwapCancelledTemp:    {Code: string(SwapCancelledTemp), DisplayText: "暂缓", Description: "用户暂不处理，等待后续决定"},
	SwapCancelled:        {Code: string(SwapCancelled), DisplayText: "已撤销", Description: "换电已撤销，电池已归位"},
}

// Info 获取预约状态展示信息
func (s BookingStatus) Info() StatusInfo {
	if info, ok := bookingStatusInfo[s]; ok {
		return info
	}
	return StatusInfo{Code: string(s), DisplayText: "未知", Description: "未知状态"}
}

// Info 获取换电记录状态展示信息
func (s SwapStatus) Info() StatusInfo {
	if info, ok := swapStatusInfo[s]; ok {
		return info
	}
	return StatusInfo{Code: string(s), DisplayText: "未知", Description: "未知状态"}
}
