package dto

// ── 认证模块响应 ──

// TokenResponse 登录/注册成功响应
type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int             `json:"expires_in"` // Access Token 有效期（秒）
	User        AccountResponse `json:"user"`
	Session     SessionResponse `json:"session"`
}

// AccountResponse 账户信息响应
type AccountResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	Role         string  `json:"role"`
	ProfileImage *string `json:"profile_image"`
	DarkMode     bool    `json:"dark_mode"`
}

// SessionResponse 会话状态响应
type SessionResponse struct {
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state"`
	Mode      string `json:"mode,omitempty"`
	Role      string `json:"role,omitempty"`
	Username  string `json:"username,omitempty"`
	View      string `json:"view,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
