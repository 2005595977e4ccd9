package dto

// ── 小组模块 DTO ──

// VersionQuery 无请求体的变更操作通过查询参数携带期望版本
type VersionQuery struct {
	ExpectedVersion *int `form:"expected_version" binding:"omitempty,min=1"`
}

// CreateGroupRequest 创建小组请求
type CreateGroupRequest struct {
	Name     string  `json:"name"     binding:"required,notblank,max=100"`
	Location string  `json:"location" binding:"max=200"`
	Phone    *string `json:"phone"    binding:"omitempty,max=30"`
}

// UpdateGroupRequest 更新小组请求
type UpdateGroupRequest struct {
	Name            *string `json:"name"             binding:"omitempty,notblank,max=100"`
	Location        *string `json:"location"         binding:"omitempty,max=200"`
	Phone           *string `json:"phone"            binding:"omitempty,max=30"`
	ExpectedVersion *int    `json:"expected_version" binding:"omitempty,min=1"`
}

// AddScheduleEntryRequest 添加课时请求
type AddScheduleEntryRequest struct {
	Day             string `json:"day"              binding:"required,weekday"`
	Time            string `json:"time"             binding:"required,hhmm"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// ── 名册 ──

// AddStudentRequest 按用户名添加学生
type AddStudentRequest struct {
	Name            string `json:"name"             binding:"required,notblank,max=100"`
	Username        string `json:"username"         binding:"required,handle"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// UpdateStudentRequest 更新学生信息
type UpdateStudentRequest struct {
	Name            *string `json:"name"             binding:"omitempty,notblank,max=100"`
	Notes           *string `json:"notes"            binding:"omitempty,max=1000"`
	Phone           *string `json:"phone"            binding:"omitempty,max=30"`
	ExpectedVersion *int    `json:"expected_version" binding:"omitempty,min=1"`
}

// ── 考试 ──

// AddExamRequest 创建考试请求（满分超出 [0,100] 时截断而非拒绝）
type AddExamRequest struct {
	Title           string `json:"title"            binding:"required,notblank,max=100"`
	Date            string `json:"date"             binding:"required,datetime=2006-01-02"`
	MaxGrade        int    `json:"max_grade"`
	Type            string `json:"type"             binding:"omitempty,oneof=daily semester"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// RecordGradeRequest 录入出勤与分数
type RecordGradeRequest struct {
	Status          string `json:"status"           binding:"required,oneof=present absent excused"`
	Grade           *int   `json:"grade"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// RosterFilterRequest 名册搜索
type RosterFilterRequest struct {
	Query string `form:"q" binding:"max=100"`
}

// GroupSummaryResponse 小组卡片摘要
type GroupSummaryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	StudentCount int    `json:"student_count"`
	PaidCount    int    `json:"paid_count"`
	ExamCount    int    `json:"exam_count"`
	Version      int    `json:"version"`
}
