package model

// 分数上限
const MaxGradeCeiling = 100

// ClampMaxGrade 满分限制在 [0,100]
func ClampMaxGrade(m int) int {
	if m < 0 {
		return 0
	}
	if m > MaxGradeCeiling {
		return MaxGradeCeiling
	}
	return m
}

// ClampGrade 分数限制在 [0,maxGrade]
func ClampGrade(v, maxGrade int) int {
	if v < 0 {
		return 0
	}
	if v > maxGrade {
		return maxGrade
	}
	return v
}

// ValidStatus 是否合法出勤状态
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusExcused
}

// ApplyAttendance 出勤/成绩状态机
//
//   - absent / excused：分数强制归零（离开 present 总是清分）
//   - present 且给出分数：分数截断到 [0,maxGrade]
//   - present 未给分数：沿用已存分数（缺勤后即为 0）
//
// 没有终态，可反复切换。
func ApplyAttendance(prev ExamResult, studentID, status string, grade *int, maxGrade int) ExamResult {
	next := ExamResult{
		StudentID: studentID,
		Status:    status,
		Notified:  prev.Notified,
	}
	switch status {
	case StatusPresent:
		if grade != nil {
			next.Grade = ClampGrade(*grade, maxGrade)
		} else {
			next.Grade = ClampGrade(prev.Grade, maxGrade)
		}
	default:
		next.Grade = 0
	}
	return next
}
