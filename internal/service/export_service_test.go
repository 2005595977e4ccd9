package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
)

func TestExportService_Gradebook(t *testing.T) {
	env := newTestEnv(t)
	teacher, g, sid := setupGradedGroup(t, env)
	ctx := context.Background()

	g, _ = env.svc.Exam.AddExam(ctx, teacher, g.GroupID, &dto.AddExamRequest{Title: "Quiz2", Date: "2026-01-20", MaxGrade: 10})
	g, _ = env.svc.Exam.RecordGrade(ctx, teacher, g.GroupID, g.Exams[0].ID, sid, &dto.RecordGradeRequest{Status: model.StatusPresent, Grade: intPtr(18)})
	g, _ = env.svc.Exam.RecordGrade(ctx, teacher, g.GroupID, g.Exams[1].ID, sid, &dto.RecordGradeRequest{Status: model.StatusAbsent})

	buf, filename, err := env.svc.Export.Gradebook(ctx, teacher, g.GroupID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾，实际 %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件无法打开: %v", err)
	}
	defer f.Close()

	cases := map[string]string{
		"A1": "G1",
		"D2": "Quiz1 (20)",
		"A3": "Ali",
		"B3": "stu1",
		"D3": "18",
		"E3": "غائب",
	}
	for c, want := range cases {
		got, _ := f.GetCellValue("الدرجات", c)
		if got != want {
			t.Errorf("单元格 %s 期望 %q，实际 %q", c, want, got)
		}
	}
}

func TestExportService_Gradebook_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	_, g, _ := setupGradedGroup(t, env)
	other := env.signup(t, "teacher", "Other", "teach2")

	if _, _, err := env.svc.Export.Gradebook(context.Background(), other, g.GroupID); !errors.Is(err, ErrGroupForbidden) {
		t.Errorf("期望 ErrGroupForbidden，实际 %v", err)
	}
}

func TestExportService_WeeklyICS(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	g := createGroup(t, env, teacher, "Physics")
	if _, err := env.svc.Group.AddScheduleEntry(ctx, teacher, g.GroupID, &dto.AddScheduleEntryRequest{Day: string(model.Tuesday), Time: "18:00"}); err != nil {
		t.Fatal(err)
	}

	buf, filename, err := env.svc.Export.WeeklyICS(ctx, teacher)
	if err != nil {
		t.Fatal(err)
	}
	if filename != "schedule.ics" {
		t.Errorf("文件名不符: %s", filename)
	}
	body := buf.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Physics", "FREQ=WEEKLY", "LOCATION:Hall A"} {
		if !strings.Contains(body, want) {
			t.Errorf("日历内容缺少 %q", want)
		}
	}
}
