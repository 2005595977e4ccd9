package model

// 个人课程类型
const (
	LectureOnline   = "online"
	LecturePhysical = "physical"
)

// StudentLecture 学生个人课程（仅保存在设备侧存储，不写入小组文档）
type StudentLecture struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Day       DayOfWeek `json:"day"`
	Time      string    `json:"time"`
	Type      string    `json:"type"` // online | physical
	Location  string    `json:"location,omitempty"`
	Postponed bool      `json:"postponed"`
}

// StudentHomework 学生个人作业（仅保存在设备侧存储）
type StudentHomework struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
}
