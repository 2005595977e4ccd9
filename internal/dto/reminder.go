package dto

// ScheduleNotificationsType 提醒注册消息类型
const ScheduleNotificationsType = "SCHEDULE_NOTIFICATIONS"

// ScheduleNotificationsRequest 注册上课提醒（整体替换当前账户的提醒集合）
type ScheduleNotificationsRequest struct {
	Type          string             `json:"type"           binding:"required,eq=SCHEDULE_NOTIFICATIONS"`
	Schedules     []ReminderSchedule `json:"schedules"      binding:"dive"`
	MinutesBefore *int               `json:"minutes_before" binding:"omitempty,min=0,max=1440"`
}

// ReminderSchedule 单条提醒课时
type ReminderSchedule struct {
	Day       string `json:"day"        binding:"required,weekday"`
	Time      string `json:"time"       binding:"required,hhmm"`
	GroupName string `json:"group_name" binding:"required,max=100"`
}

// ScheduleNotificationsResponse 注册结果
type ScheduleNotificationsResponse struct {
	Registered    int `json:"registered"`
	MinutesBefore int `json:"minutes_before"`
}
