// Package session 视图/会话状态机与会话注册表。
package session

import (
	"errors"

	"manasa/backend/internal/model"
)

// State 顶层状态
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateRoleSelection   State = "role_selection"
	StateCredentialEntry State = "credential_entry"
	StateAuthenticated   State = "authenticated"
)

// Mode 凭据录入子模式
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

// View 已认证状态下的视图
type View string

const (
	ViewRosterList   View = "roster_list"
	ViewRosterDetail View = "roster_detail"
	ViewExamGrading  View = "exam_grading"
	ViewSchedule     View = "schedule"
	ViewResults      View = "results"
	ViewSettings     View = "settings"
)

var (
	ErrInvalidTransition = errors.New("لا يمكن الانتقال إلى هذه الحالة الآن")
	ErrViewForbidden     = errors.New("هذه الصفحة غير متاحة لهذا النوع من الحسابات")
	ErrGroupRequired     = errors.New("يرجى اختيار المجموعة أولاً")
	ErrUnknownView       = errors.New("صفحة غير معروفة")
	ErrUnknownRole       = errors.New("نوع حساب غير معروف")
)

// Machine 单个客户端的会话状态
type Machine struct {
	State   State  `json:"state"`
	Mode    Mode   `json:"mode,omitempty"`
	Role    string `json:"role,omitempty"`
	View    View   `json:"view,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

// NewMachine 初始为未认证
func NewMachine() *Machine {
	return &Machine{State: StateUnauthenticated}
}

// DefaultView 教师进入名册列表，学生进入成绩页
func DefaultView(role string) View {
	if role == model.RoleTeacher {
		return ViewRosterList
	}
	return ViewResults
}

func validRole(role string) bool {
	return role == model.RoleTeacher || role == model.RoleStudent
}

// Boot 应用加载且无有效会话：进入角色选择
func (m *Machine) Boot() {
	*m = Machine{State: StateRoleSelection}
}

// SelectRole 角色选择 → 凭据录入（默认登录模式）
func (m *Machine) SelectRole(role string) error {
	if m.State != StateRoleSelection {
		return ErrInvalidTransition
	}
	if !validRole(role) {
		return ErrUnknownRole
	}
	m.State = StateCredentialEntry
	m.Mode = ModeLogin
	m.Role = role
	return nil
}

// ToggleMode 登录 ↔ 注册
func (m *Machine) ToggleMode() error {
	if m.State != StateCredentialEntry {
		return ErrInvalidTransition
	}
	if m.Mode == ModeLogin {
		m.Mode = ModeSignup
	} else {
		m.Mode = ModeLogin
	}
	return nil
}

// Back 凭据录入 → 角色选择
func (m *Machine) Back() error {
	if m.State != StateCredentialEntry {
		return ErrInvalidTransition
	}
	m.Boot()
	return nil
}

// Authenticate 凭据校验通过或恢复会话；角色以账户档案为准
func (m *Machine) Authenticate(role string) error {
	if !validRole(role) {
		return ErrUnknownRole
	}
	switch m.State {
	case StateUnauthenticated, StateCredentialEntry, StateRoleSelection:
	default:
		return ErrInvalidTransition
	}
	*m = Machine{State: StateAuthenticated, Role: role, View: DefaultView(role)}
	return nil
}

// Navigate 已认证状态内切换视图
// roster_detail / exam_grading 仅教师可用且需要小组 ID；其余视图清空当前小组
func (m *Machine) Navigate(view View, groupID string) error {
	if m.State != StateAuthenticated {
		return ErrInvalidTransition
	}
	switch view {
	case ViewRosterDetail, ViewExamGrading:
		if m.Role != model.RoleTeacher {
			return ErrViewForbidden
		}
		if groupID == "" {
			groupID = m.GroupID
		}
		if groupID == "" {
			return ErrGroupRequired
		}
		m.View, m.GroupID = view, groupID
	case ViewRosterList:
		if m.Role != model.RoleTeacher {
			return ErrViewForbidden
		}
		m.View, m.GroupID = view, ""
	case ViewSchedule, ViewResults, ViewSettings:
		m.View, m.GroupID = view, ""
	default:
		return ErrUnknownView
	}
	return nil
}

// GroupGone 当前查看的小组被删除或失去访问权时回到默认视图
func (m *Machine) GroupGone(groupID string) {
	if m.State == StateAuthenticated && m.GroupID != "" && m.GroupID == groupID {
		m.View, m.GroupID = DefaultView(m.Role), ""
	}
}

// AccountMissing 账户档案缺失：强制回到角色选择
func (m *Machine) AccountMissing() {
	m.Boot()
}

// SignOut 登出后回到角色选择
func (m *Machine) SignOut() {
	m.Boot()
}
