package service

import (
	"context"
	"testing"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/projection"
)

// 学生在两个小组中各有一条成绩 → MyResults 返回 2 条，按小组顺序
func TestResultsService_MyResults_CrossGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	student := env.signup(t, "student", "Ali", "stu1")

	for _, name := range []string{"G1", "G2"} {
		g := createGroup(t, env, teacher, name)
		g, _ = env.svc.Roster.AddStudent(ctx, teacher, g.GroupID, &dto.AddStudentRequest{Name: "Ali", Username: "stu1"})
		g, _ = env.svc.Exam.AddExam(ctx, teacher, g.GroupID, &dto.AddExamRequest{Title: name + "-Quiz", Date: "2026-01-10", MaxGrade: 20})
		// 第二场考试未评分，不应出现在结果中
		g, _ = env.svc.Exam.AddExam(ctx, teacher, g.GroupID, &dto.AddExamRequest{Title: name + "-Pending", Date: "2026-01-11", MaxGrade: 20})
		if _, err := env.svc.Exam.RecordGrade(ctx, teacher, g.GroupID, g.Exams[0].ID, g.Students[0].ID, &dto.RecordGradeRequest{Status: model.StatusPresent, Grade: intPtr(17)}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := env.svc.Results.MyResults(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("期望 2 条成绩，实际 %d", len(res))
	}
	if res[0].GroupName != "G1" || res[1].GroupName != "G2" || res[0].Grade != 17 {
		t.Errorf("成绩顺序或内容不符: %+v", res)
	}

	teacherRes, _ := env.svc.Results.MyResults(ctx, teacher)
	if len(teacherRes) != 0 || teacherRes == nil {
		t.Errorf("教师应返回空列表，实际 %v", teacherRes)
	}
}

func TestResultsService_Weekly_MergesPersonalLectures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	student := env.signup(t, "student", "Ali", "stu1")
	student.DeviceID = "device-1"

	g := createGroup(t, env, teacher, "Physics")
	g, _ = env.svc.Roster.AddStudent(ctx, teacher, g.GroupID, &dto.AddStudentRequest{Name: "Ali", Username: "stu1"})
	if _, err := env.svc.Group.AddScheduleEntry(ctx, teacher, g.GroupID, &dto.AddScheduleEntryRequest{Day: string(model.Sunday), Time: "16:00"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Planner.AddLecture(ctx, student, &dto.LectureRequest{Subject: "Math", Day: string(model.Sunday), Time: "09:30"}); err != nil {
		t.Fatal(err)
	}

	week, err := env.svc.Results.Weekly(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(week) != 7 {
		t.Errorf("七天都应有键，实际 %d", len(week))
	}
	sunday := week[model.Sunday]
	if len(sunday) != 2 {
		t.Fatalf("周日应有 2 条，实际 %d", len(sunday))
	}
	if sunday[0].Subject != "Math" || sunday[0].Source != projection.SourcePersonal {
		t.Errorf("09:30 的个人课程应排在前面，实际 %+v", sunday[0])
	}
	if sunday[1].Subject != "Physics" || sunday[1].Source != projection.SourceGroup {
		t.Errorf("小组课时应以小组名为科目，实际 %+v", sunday[1])
	}

	// 没有设备 ID 时只返回小组课时
	student.DeviceID = ""
	week, _ = env.svc.Results.Weekly(ctx, student)
	if len(week[model.Sunday]) != 1 {
		t.Errorf("无设备 ID 时期望 1 条，实际 %d", len(week[model.Sunday]))
	}
}
