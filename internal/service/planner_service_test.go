package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/planner"
)

func TestPlannerService_DeviceRequired(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "student", "Ali", "stu1")

	if _, err := env.svc.Planner.Lectures(context.Background(), student); !errors.Is(err, planner.ErrDeviceRequired) {
		t.Errorf("期望 ErrDeviceRequired，实际 %v", err)
	}
}

func TestPlannerService_LectureValidation(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "student", "Ali", "stu1")
	student.DeviceID = "d1"
	ctx := context.Background()

	if _, err := env.svc.Planner.AddLecture(ctx, student, &dto.LectureRequest{Subject: "Math", Day: "Funday", Time: "09:00"}); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("期望 ErrInvalidDay，实际 %v", err)
	}
	if _, err := env.svc.Planner.AddLecture(ctx, student, &dto.LectureRequest{Subject: "Math", Day: string(model.Monday), Time: "25:00"}); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("期望 ErrInvalidTime，实际 %v", err)
	}

	l, err := env.svc.Planner.AddLecture(ctx, student, &dto.LectureRequest{Subject: " Math ", Day: string(model.Monday), Time: "09:00"})
	if err != nil {
		t.Fatal(err)
	}
	if l.Subject != "Math" || l.Type != model.LecturePhysical {
		t.Errorf("课程字段不符: %+v", l)
	}
}

func TestPlannerService_HomeworkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "student", "Ali", "stu1")
	student.DeviceID = "d1"
	ctx := context.Background()

	hw, err := env.svc.Planner.AddHomework(ctx, student, &dto.HomeworkRequest{Subject: "Math", Task: "Ex 1-10"})
	if err != nil {
		t.Fatal(err)
	}
	hw, _ = env.svc.Planner.ToggleHomework(ctx, student, hw.ID)
	if !hw.Completed {
		t.Error("切换后应为已完成")
	}
	if err := env.svc.Planner.DeleteHomework(ctx, student, hw.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := env.svc.Planner.Homework(ctx, student)
	if len(list) != 0 {
		t.Errorf("删除后应为空，实际 %d", len(list))
	}
}

func TestPlannerService_ImportLectures(t *testing.T) {
	env := newTestEnv(t)
	student := env.signup(t, "student", "Ali", "stu1")
	student.DeviceID = "d1"
	ctx := context.Background()

	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:1@test",
		"DTSTART:20260105T090000Z",
		"DTEND:20260105T100000Z",
		"SUMMARY:Chemistry",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	resp, err := env.svc.Planner.ImportLectures(ctx, student, strings.NewReader(ics), int64(len(ics)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Imported != 1 || resp.Total != 1 {
		t.Errorf("导入统计不符: %+v", resp)
	}

	if _, err := env.svc.Planner.ImportLectures(ctx, student, strings.NewReader("not a calendar"), 14); !errors.Is(err, ErrICSInvalid) {
		t.Errorf("期望 ErrICSInvalid，实际 %v", err)
	}
	if _, err := env.svc.Planner.ImportLectures(ctx, student, strings.NewReader(""), planner.MaxICSSize+1); !errors.Is(err, ErrICSTooLarge) {
		t.Errorf("期望 ErrICSTooLarge，实际 %v", err)
	}
}
