package dto

// ── 个人计划表 DTO ──

// LectureRequest 新增/更新个人课程
type LectureRequest struct {
	Subject  string `json:"subject"  binding:"required,notblank,max=100"`
	Day      string `json:"day"      binding:"required,weekday"`
	Time     string `json:"time"     binding:"required,hhmm"`
	Type     string `json:"type"     binding:"omitempty,oneof=online physical"`
	Location string `json:"location" binding:"max=200"`
}

// HomeworkRequest 新增作业
type HomeworkRequest struct {
	Subject string `json:"subject" binding:"required,notblank,max=100"`
	Task    string `json:"task"    binding:"required,notblank,max=500"`
}

// ImportLecturesResponse ICS 导入结果
type ImportLecturesResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}
