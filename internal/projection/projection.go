// Package projection 从小组文档快照派生按角色区分的只读视图。
//
// 所有函数均为纯函数：不修改输入，空输入返回空（非 nil）结果。
package projection

import (
	"sort"
	"strings"

	"manasa/backend/internal/model"
)

// ResultEntry 学生跨小组成绩条目
type ResultEntry struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	ExamID    string `json:"exam_id"`
	ExamTitle string `json:"exam_title"`
	ExamType  string `json:"exam_type"`
	Date      string `json:"date"`
	Grade     int    `json:"grade"`
	MaxGrade  int    `json:"max_grade"`
	Status    string `json:"status"`
}

// HistoryEntry 学生在单个小组内的考试记录
type HistoryEntry struct {
	ExamID   string           `json:"exam_id"`
	Title    string           `json:"title"`
	Date     string           `json:"date"`
	MaxGrade int              `json:"max_grade"`
	Result   model.ExamResult `json:"result"`
}

// Stats 出勤统计
type Stats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
}

// 课表条目来源
const (
	SourceGroup    = "group"
	SourcePersonal = "personal"
)

// ScheduleItem 周课表条目
type ScheduleItem struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Day       model.DayOfWeek `json:"day"`
	Time      string          `json:"time"`
	Source    string          `json:"source"` // group | personal
	GroupID   string          `json:"group_id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Location  string          `json:"location,omitempty"`
	Postponed bool            `json:"postponed,omitempty"`
}

// MyResults 学生跨小组成绩：按小组顺序、再按考试顺序输出；未录入成绩的考试不产生条目
func MyResults(handle string, groups []model.Group) []ResultEntry {
	out := []ResultEntry{}
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return out
	}
	for gi := range groups {
		g := &groups[gi]
		student, ok := g.FindStudentByUsername(handle)
		if !ok {
			continue
		}
		for _, ex := range g.Exams {
			res, ok := ex.Results[student.ID]
			if !ok {
				continue
			}
			out = append(out, ResultEntry{
				GroupID:   g.GroupID,
				GroupName: g.Name,
				ExamID:    ex.ID,
				ExamTitle: ex.Title,
				ExamType:  ex.Type,
				Date:      ex.Date,
				Grade:     res.Grade,
				MaxGrade:  ex.MaxGrade,
				Status:    res.Status,
			})
		}
	}
	return out
}

// StudentExamHistory 单小组考试记录，只包含已录入结果的考试
func StudentExamHistory(g *model.Group, studentID string) []HistoryEntry {
	out := []HistoryEntry{}
	if g == nil {
		return out
	}
	for _, ex := range g.Exams {
		res, ok := ex.Results[studentID]
		if !ok {
			continue
		}
		out = append(out, HistoryEntry{
			ExamID:   ex.ID,
			Title:    ex.Title,
			Date:     ex.Date,
			MaxGrade: ex.MaxGrade,
			Result:   res,
		})
	}
	return out
}

// AttendanceStats 扫描各考试结果统计出勤
func AttendanceStats(g *model.Group, studentID string) Stats {
	var s Stats
	if g == nil {
		return s
	}
	for _, ex := range g.Exams {
		res, ok := ex.Results[studentID]
		if !ok {
			continue
		}
		switch res.Status {
		case model.StatusPresent:
			s.Present++
		case model.StatusAbsent:
			s.Absent++
		case model.StatusExcused:
			s.Excused++
		}
	}
	return s
}

// WeeklySchedule 合并小组课时与个人课程，七天均有键，按 HH:MM 字符串排序
// 小组条目以小组名作为科目
func WeeklySchedule(groups []model.Group, lectures []model.StudentLecture) map[model.DayOfWeek][]ScheduleItem {
	week := make(map[model.DayOfWeek][]ScheduleItem, len(model.Days))
	for _, d := range model.Days {
		week[d] = []ScheduleItem{}
	}

	for _, g := range groups {
		for _, e := range g.Schedule {
			if _, ok := week[e.Day]; !ok {
				continue
			}
			week[e.Day] = append(week[e.Day], ScheduleItem{
				ID:       e.ID,
				Subject:  g.Name,
				Day:      e.Day,
				Time:     e.Time,
				Source:   SourceGroup,
				GroupID:  g.GroupID,
				Location: g.Location,
			})
		}
	}
	for _, l := range lectures {
		if _, ok := week[l.Day]; !ok {
			continue
		}
		week[l.Day] = append(week[l.Day], ScheduleItem{
			ID:        l.ID,
			Subject:   l.Subject,
			Day:       l.Day,
			Time:      l.Time,
			Source:    SourcePersonal,
			Type:      l.Type,
			Location:  l.Location,
			Postponed: l.Postponed,
		})
	}

	for d := range week {
		items := week[d]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Time < items[j].Time })
	}
	return week
}

// FilterStudents 名册搜索：按显示名子串匹配，查询为空时返回全部
func FilterStudents(g *model.Group, query string) []model.Student {
	out := []model.Student{}
	if g == nil {
		return out
	}
	query = strings.TrimSpace(query)
	for _, s := range g.Students {
		if query == "" || strings.Contains(s.Name, query) {
			out = append(out, s)
		}
	}
	return out
}

// Summary 小组卡片摘要
type Summary struct {
	StudentCount int
	PaidCount    int
	ExamCount    int
}

// GroupSummary 统计学生数、已缴费人数与考试数
func GroupSummary(g *model.Group) Summary {
	var s Summary
	if g == nil {
		return s
	}
	s.StudentCount = len(g.Students)
	s.ExamCount = len(g.Exams)
	for _, st := range g.Students {
		if st.Paid {
			s.PaidCount++
		}
	}
	return s
}
