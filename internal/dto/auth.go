package dto

// ── 认证模块 DTO ──

// SignupRequest 注册请求（角色选择 → 填写资料）
type SignupRequest struct {
	Role     string `json:"role"     binding:"required,oneof=teacher student"`
	Name     string `json:"name"     binding:"required,notblank,max=50"`
	Username string `json:"username" binding:"required,handle"`
	Password string `json:"password" binding:"required,max=64"` // 长度下限由身份网关配置决定
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest 更新个人资料（单字段补丁）
type UpdateProfileRequest struct {
	Name         *string `json:"name"          binding:"omitempty,notblank,max=50"`
	ProfileImage *string `json:"profile_image"`
	DarkMode     *bool   `json:"dark_mode"`
}
