package projection

import (
	"reflect"
	"testing"

	"manasa/backend/internal/model"
)

// ── 测试数据 ──

func graded(studentID string, grade int, status string) map[string]model.ExamResult {
	return map[string]model.ExamResult{
		studentID: {StudentID: studentID, Grade: grade, Status: status},
	}
}

func twoGroups() []model.Group {
	return []model.Group{
		{
			GroupID: "g1",
			Name:    "G1",
			Students: []model.Student{
				{ID: "s1", Name: "Ali", Username: "stu1"},
				{ID: "s2", Name: "Omar", Username: "stu2"},
			},
			Exams: []model.Exam{
				{ID: "e1", Title: "Quiz1", Date: "2026-01-10", MaxGrade: 20, Results: graded("s1", 18, model.StatusPresent)},
				{ID: "e2", Title: "Quiz2", Date: "2026-01-17", MaxGrade: 20, Results: map[string]model.ExamResult{}},
			},
		},
		{
			GroupID:  "g2",
			Name:     "G2",
			Students: []model.Student{{ID: "x9", Name: "Ali", Username: "STU1"}},
			Exams: []model.Exam{
				{ID: "e3", Title: "Final", Date: "2026-02-01", MaxGrade: 100, Results: graded("x9", 0, model.StatusAbsent)},
			},
		},
	}
}

// ── MyResults ──

func TestMyResults_CrossGroup(t *testing.T) {
	res := MyResults("stu1", twoGroups())
	if len(res) != 2 {
		t.Fatalf("期望 2 条成绩，实际 %d", len(res))
	}
	if res[0].GroupName != "G1" || res[1].GroupName != "G2" {
		t.Errorf("期望按小组顺序 G1,G2，实际 %s,%s", res[0].GroupName, res[1].GroupName)
	}
	if res[1].Status != model.StatusAbsent || res[1].Grade != 0 {
		t.Errorf("期望 G2 缺勤 0 分，实际 %+v", res[1])
	}
}

func TestMyResults_CountMatchesRecordedResults(t *testing.T) {
	groups := twoGroups()
	want := 0
	for _, g := range groups {
		st, ok := g.FindStudentByUsername("stu1")
		if !ok {
			continue
		}
		for _, ex := range g.Exams {
			if _, ok := ex.Results[st.ID]; ok {
				want++
			}
		}
	}
	if got := len(MyResults("stu1", groups)); got != want {
		t.Errorf("期望 %d 条，实际 %d", want, got)
	}
}

func TestMyResults_Empty(t *testing.T) {
	if res := MyResults("stu1", nil); res == nil || len(res) != 0 {
		t.Errorf("空输入期望非 nil 空切片，实际 %#v", res)
	}
	if res := MyResults("nobody", twoGroups()); len(res) != 0 {
		t.Errorf("非成员期望 0 条，实际 %d", len(res))
	}
}

func TestMyResults_DoesNotMutateInput(t *testing.T) {
	groups := twoGroups()
	before := twoGroups()
	_ = MyResults("stu1", groups)
	_ = WeeklySchedule(groups, nil)
	if !reflect.DeepEqual(groups, before) {
		t.Error("投影不应修改输入")
	}
}

// ── StudentExamHistory / AttendanceStats ──

func TestStudentExamHistory_OmitsUngraded(t *testing.T) {
	g := twoGroups()[0]
	h := StudentExamHistory(&g, "s1")
	if len(h) != 1 || h[0].Title != "Quiz1" {
		t.Errorf("期望仅 Quiz1，实际 %+v", h)
	}
	if h := StudentExamHistory(&g, "s2"); len(h) != 0 {
		t.Errorf("未录入成绩的学生期望 0 条，实际 %d", len(h))
	}
	if h := StudentExamHistory(nil, "s1"); h == nil {
		t.Error("nil 小组期望空切片")
	}
}

func TestAttendanceStats(t *testing.T) {
	g := model.Group{
		Exams: []model.Exam{
			{ID: "a", Results: graded("s1", 10, model.StatusPresent)},
			{ID: "b", Results: graded("s1", 0, model.StatusAbsent)},
			{ID: "c", Results: graded("s1", 0, model.StatusExcused)},
			{ID: "d", Results: graded("s1", 5, model.StatusPresent)},
			{ID: "e", Results: map[string]model.ExamResult{}},
		},
	}
	got := AttendanceStats(&g, "s1")
	want := Stats{Present: 2, Absent: 1, Excused: 1}
	if got != want {
		t.Errorf("期望 %+v，实际 %+v", want, got)
	}
}

// ── WeeklySchedule ──

func TestWeeklySchedule_AllDaysSorted(t *testing.T) {
	groups := []model.Group{{
		GroupID: "g1",
		Name:    "Physics",
		Schedule: []model.ScheduleEntry{
			{ID: "1", Day: model.Sunday, Time: "16:00"},
			{ID: "2", Day: model.Sunday, Time: "09:30"},
		},
	}}
	lectures := []model.StudentLecture{
		{ID: "p1", Subject: "Math", Day: model.Sunday, Time: "12:00"},
		{ID: "p2", Subject: "Art", Day: model.Friday, Time: "08:00"},
	}

	week := WeeklySchedule(groups, lectures)
	if len(week) != 7 {
		t.Fatalf("期望 7 天，实际 %d", len(week))
	}
	sun := week[model.Sunday]
	if len(sun) != 3 {
		t.Fatalf("期望周日 3 条，实际 %d", len(sun))
	}
	times := []string{sun[0].Time, sun[1].Time, sun[2].Time}
	if !reflect.DeepEqual(times, []string{"09:30", "12:00", "16:00"}) {
		t.Errorf("期望按时间排序，实际 %v", times)
	}
	if sun[0].Subject != "Physics" || sun[0].Source != SourceGroup {
		t.Errorf("期望小组条目以小组名为科目，实际 %+v", sun[0])
	}
	if sun[1].Subject != "Math" || sun[1].Source != SourcePersonal {
		t.Errorf("期望个人课程保留自身科目，实际 %+v", sun[1])
	}
	if len(week[model.Monday]) != 0 || week[model.Monday] == nil {
		t.Error("无课的日子期望空切片")
	}
}

// ── FilterStudents / GroupSummary ──

func TestFilterStudents(t *testing.T) {
	g := twoGroups()[0]
	if got := FilterStudents(&g, "Om"); len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("期望匹配 Omar，实际 %+v", got)
	}
	if got := FilterStudents(&g, ""); len(got) != 2 {
		t.Errorf("空查询期望全部，实际 %d", len(got))
	}
}

func TestGroupSummary(t *testing.T) {
	g := twoGroups()[0]
	g.Students[1].Paid = true
	s := GroupSummary(&g)
	if s.StudentCount != 2 || s.PaidCount != 1 || s.ExamCount != 2 {
		t.Errorf("摘要不符: %+v", s)
	}
}
