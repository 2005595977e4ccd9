package model

import (
	"strings"

	"gorm.io/datatypes"
)

// DayOfWeek 星期（阿拉伯语固定取值，周日为一周第一天）
type DayOfWeek string

const (
	Sunday    DayOfWeek = "الأحد"
	Monday    DayOfWeek = "الاثنين"
	Tuesday   DayOfWeek = "الثلاثاء"
	Wednesday DayOfWeek = "الأربعاء"
	Thursday  DayOfWeek = "الخميس"
	Friday    DayOfWeek = "الجمعة"
	Saturday  DayOfWeek = "السبت"
)

// Days 按 time.Weekday 顺序排列（0=周日）
var Days = []DayOfWeek{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Weekday 返回与 time.Weekday 对齐的序号，非法值返回 -1
func (d DayOfWeek) Weekday() int {
	for i, v := range Days {
		if v == d {
			return i
		}
	}
	return -1
}

// Valid 是否合法星期
func (d DayOfWeek) Valid() bool { return d.Weekday() >= 0 }

// 考试类型
const (
	ExamDaily    = "daily"
	ExamSemester = "semester"
)

// 出勤状态
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
)

// Group 小组文档 — 对应 groups
// 学生、考试、课时以 JSONB 内嵌；StudentUsernames 由 Students 派生，不手工维护
type Group struct {
	GroupID          string                            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name             string                            `gorm:"type:varchar(100);not null"                     json:"name"`
	Location         string                            `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	Phone            *string                           `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	TeacherUID       string                            `gorm:"type:uuid;not null;index"                       json:"teacher_uid"`
	Schedule         datatypes.JSONSlice[ScheduleEntry] `gorm:"type:jsonb;not null"                            json:"schedule"`
	Students         datatypes.JSONSlice[Student]       `gorm:"type:jsonb;not null"                            json:"students"`
	Exams            datatypes.JSONSlice[Exam]          `gorm:"type:jsonb;not null"                            json:"exams"`
	StudentUsernames StringArray                       `gorm:"type:text[];not null"                           json:"student_usernames"`
	Version          int                               `gorm:"not null;default:1"                             json:"version"`
	BaseModel
}

// TableName 指定表名
func (Group) TableName() string { return "groups" }

// Student 小组内学生记录（通过 Username 关联账户）
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Paid     bool   `json:"paid"`
	Starred  bool   `json:"starred,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// ScheduleEntry 小组课时
type ScheduleEntry struct {
	ID   string    `json:"id"`
	Day  DayOfWeek `json:"day"`
	Time string    `json:"time"` // HH:MM，24 小时制补零
}

// Exam 考试
type Exam struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Date     string                `json:"date"`
	MaxGrade int                   `json:"max_grade"`
	Type     string                `json:"type"` // daily | semester
	Results  map[string]ExamResult `json:"results"`
}

// ExamResult 单个学生的考试结果，键为学生 ID
type ExamResult struct {
	StudentID string `json:"student_id"`
	Grade     int    `json:"grade"`
	Status    string `json:"status"` // present | absent | excused
	Notified  bool   `json:"notified,omitempty"`
}

// ── 查询辅助 ──

// StudentIndex 按学生 ID 查找下标，未找到返回 -1
func (g *Group) StudentIndex(studentID string) int {
	for i := range g.Students {
		if g.Students[i].ID == studentID {
			return i
		}
	}
	return -1
}

// FindStudentByUsername 按用户名（忽略大小写）查找学生
func (g *Group) FindStudentByUsername(username string) (*Student, bool) {
	for i := range g.Students {
		if strings.EqualFold(g.Students[i].Username, username) {
			return &g.Students[i], true
		}
	}
	return nil, false
}

// ExamIndex 按考试 ID 查找下标，未找到返回 -1
func (g *Group) ExamIndex(examID string) int {
	for i := range g.Exams {
		if g.Exams[i].ID == examID {
			return i
		}
	}
	return -1
}

// RebuildMembership 由 Students 重新计算成员索引（保持顺序、去重、小写）
func (g *Group) RebuildMembership() {
	seen := make(map[string]bool, len(g.Students))
	usernames := make(StringArray, 0, len(g.Students))
	for _, s := range g.Students {
		u := strings.ToLower(s.Username)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		usernames = append(usernames, u)
	}
	g.StudentUsernames = usernames
}

// Clone 深拷贝，投影与变更均在副本上进行
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	cp := *g
	if g.Phone != nil {
		p := *g.Phone
		cp.Phone = &p
	}
	cp.Schedule = append(datatypes.JSONSlice[ScheduleEntry]{}, g.Schedule...)
	cp.Students = append(datatypes.JSONSlice[Student]{}, g.Students...)
	cp.StudentUsernames = append(StringArray{}, g.StudentUsernames...)
	cp.Exams = make(datatypes.JSONSlice[Exam], len(g.Exams))
	for i, ex := range g.Exams {
		results := make(map[string]ExamResult, len(ex.Results))
		for k, v := range ex.Results {
			results[k] = v
		}
		ex.Results = results
		cp.Exams[i] = ex
	}
	return &cp
}

// Normalize 补齐空集合，保证写入与序列化均为 [] 而非 null
func (g *Group) Normalize() {
	if g.Schedule == nil {
		g.Schedule = datatypes.JSONSlice[ScheduleEntry]{}
	}
	if g.Students == nil {
		g.Students = datatypes.JSONSlice[Student]{}
	}
	if g.Exams == nil {
		g.Exams = datatypes.JSONSlice[Exam]{}
	}
	for i := range g.Exams {
		if g.Exams[i].Results == nil {
			g.Exams[i].Results = map[string]ExamResult{}
		}
	}
	if g.StudentUsernames == nil {
		g.StudentUsernames = StringArray{}
	}
}
