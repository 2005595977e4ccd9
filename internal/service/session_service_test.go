package service

import (
	"context"
	"errors"
	"testing"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/session"
)

func TestSessionService_ChangeView(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	g := createGroup(t, env, teacher, "G1")
	ctx := context.Background()

	resp, err := env.svc.Session.ChangeView(ctx, teacher, &dto.ChangeViewRequest{View: "roster_detail", GroupID: g.GroupID})
	if err != nil {
		t.Fatal(err)
	}
	if resp.View != "roster_detail" || resp.GroupID != g.GroupID {
		t.Errorf("会话视图不符: %+v", resp)
	}

	// 不带小组 ID 时沿用当前小组
	resp, err = env.svc.Session.ChangeView(ctx, teacher, &dto.ChangeViewRequest{View: "exam_grading"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.GroupID != g.GroupID {
		t.Errorf("期望沿用小组 %s，实际 %s", g.GroupID, resp.GroupID)
	}

	cur, _ := env.svc.Session.Current(ctx, teacher)
	if cur.View != "exam_grading" {
		t.Errorf("当前视图应为 exam_grading，实际 %s", cur.View)
	}
}

func TestSessionService_ChangeView_Errors(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	other := env.signup(t, "teacher", "Other", "teach2")
	student := env.signup(t, "student", "Ali", "stu1")
	g := createGroup(t, env, teacher, "G1")
	ctx := context.Background()

	if _, err := env.svc.Session.ChangeView(ctx, other, &dto.ChangeViewRequest{View: "roster_detail", GroupID: g.GroupID}); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("他人小组期望 ErrGroupNotFound，实际 %v", err)
	}
	if _, err := env.svc.Session.ChangeView(ctx, student, &dto.ChangeViewRequest{View: "roster_list"}); !errors.Is(err, session.ErrViewForbidden) {
		t.Errorf("学生进入名册期望 ErrViewForbidden，实际 %v", err)
	}
	if _, err := env.svc.Session.ChangeView(ctx, teacher, &dto.ChangeViewRequest{View: "roster_detail"}); !errors.Is(err, session.ErrGroupRequired) {
		t.Errorf("未选小组期望 ErrGroupRequired，实际 %v", err)
	}
	if _, err := env.svc.Session.Current(ctx, &Caller{SessionID: "gone"}); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
}
