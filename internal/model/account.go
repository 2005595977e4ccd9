package model

// 账户角色
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Account 账户档案 — 对应 users（主键即身份网关的 identity id）
type Account struct {
	UserID       string  `gorm:"type:uuid;primaryKey"             json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"       json:"name"`
	Username     string  `gorm:"type:varchar(32);not null;unique" json:"username"` // 全局唯一，小写
	Role         string  `gorm:"type:varchar(20);not null"        json:"role"`     // teacher | student
	ProfileImage *string `gorm:"type:text"                        json:"profile_image"`
	DarkMode     bool    `gorm:"not null;default:false"           json:"dark_mode"`
	Onboarded    bool    `gorm:"not null;default:true"            json:"onboarded"`
	BaseModel
}

// TableName 指定表名
func (Account) TableName() string { return "users" }

// IsTeacher 是否教师账户
func (a *Account) IsTeacher() bool { return a.Role == RoleTeacher }

// Identity 身份网关记录 — 对应 identities
type Identity struct {
	IdentityID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"identity_id"`
	LoginID      string `gorm:"type:varchar(255);not null;unique"              json:"login_id"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	BaseModel
}

// TableName 指定表名
func (Identity) TableName() string { return "identities" }
