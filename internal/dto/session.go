package dto

// ChangeViewRequest 切换视图请求
type ChangeViewRequest struct {
	View    string `json:"view"     binding:"required,oneof=roster_list roster_detail exam_grading schedule results settings"`
	GroupID string `json:"group_id" binding:"omitempty,uuid"`
}
