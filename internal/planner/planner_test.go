package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"manasa/backend/internal/model"
)

func newTestPlanner() *Planner {
	return New(NewMemoryStore(), zap.NewNop())
}

var scopeA = Scope{DeviceID: "dev-a", Handle: "stu1"}

func TestPlanner_DeviceRequired(t *testing.T) {
	p := newTestPlanner()
	if _, err := p.Lectures(context.Background(), Scope{Handle: "stu1"}); !errors.Is(err, ErrDeviceRequired) {
		t.Errorf("期望 ErrDeviceRequired，实际 %v", err)
	}
}

func TestPlanner_LectureLifecycle(t *testing.T) {
	p := newTestPlanner()
	ctx := context.Background()

	l, err := p.AddLecture(ctx, scopeA, model.StudentLecture{Subject: "رياضيات", Day: model.Sunday, Time: "10:00"})
	if err != nil {
		t.Fatal(err)
	}
	if l.ID == "" || l.Type != model.LecturePhysical {
		t.Errorf("期望分配 ID 且默认线下，实际 %+v", l)
	}

	toggled, _ := p.TogglePostponed(ctx, scopeA, l.ID)
	if !toggled.Postponed {
		t.Error("期望延期标记为 true")
	}

	updated, err := p.UpdateLecture(ctx, scopeA, l.ID, model.StudentLecture{Subject: "فيزياء", Day: model.Monday, Time: "11:00"})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Postponed || updated.Subject != "فيزياء" {
		t.Errorf("更新应保留延期标记，实际 %+v", updated)
	}

	if err := p.DeleteLecture(ctx, scopeA, l.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := p.Lectures(ctx, scopeA)
	if len(list) != 0 {
		t.Errorf("期望 0 条，实际 %d", len(list))
	}
	if err := p.DeleteLecture(ctx, scopeA, "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("期望 ErrItemNotFound，实际 %v", err)
	}
}

func TestPlanner_ScopesAreIsolated(t *testing.T) {
	p := newTestPlanner()
	ctx := context.Background()
	_, _ = p.AddHomework(ctx, scopeA, "كيمياء", "حل الواجب")

	other := Scope{DeviceID: "dev-b", Handle: "stu1"}
	list, _ := p.Homework(ctx, other)
	if len(list) != 0 {
		t.Errorf("不同设备应互不可见，实际 %d", len(list))
	}
}

func TestPlanner_HomeworkToggle(t *testing.T) {
	p := newTestPlanner()
	ctx := context.Background()
	first, _ := p.AddHomework(ctx, scopeA, "a", "t1")
	second, _ := p.AddHomework(ctx, scopeA, "b", "t2")

	list, _ := p.Homework(ctx, scopeA)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("期望新作业排在最前，实际 %+v", list)
	}

	hw, _ := p.ToggleHomework(ctx, scopeA, first.ID)
	if !hw.Completed {
		t.Error("期望完成状态为 true")
	}
	hw, _ = p.ToggleHomework(ctx, scopeA, first.ID)
	if hw.Completed {
		t.Error("两次切换应回到原值")
	}
}

func TestPlanner_ConcurrentAdds(t *testing.T) {
	p := newTestPlanner()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.AddHomework(ctx, scopeA, "s", "t")
		}()
	}
	wg.Wait()
	list, _ := p.Homework(ctx, scopeA)
	if len(list) != 20 {
		t.Errorf("并发新增不应丢失，期望 20，实际 %d", len(list))
	}
}

func TestPlanner_CorruptDataResets(t *testing.T) {
	store := NewMemoryStore()
	p := New(store, zap.NewNop())
	key, _ := scopeA.key(kindHomework)
	_ = store.Save(context.Background(), key, []byte("not-json"))

	list, err := p.Homework(context.Background(), scopeA)
	if err != nil || len(list) != 0 {
		t.Errorf("损坏数据期望返回空列表，实际 %v err=%v", list, err)
	}
}

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:1
SUMMARY:Physics
DTSTART:20260104T160000
DTEND:20260104T173000
RRULE:FREQ=WEEKLY;BYDAY=SU,TU
LOCATION:Hall A
END:VEVENT
BEGIN:VEVENT
UID:2
SUMMARY:English
DTSTART:20260105T090000
LOCATION:https://meet.example.com/abc
END:VEVENT
BEGIN:VEVENT
UID:3
SUMMARY:Physics
DTSTART:20260111T160000
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	lectures, err := ParseICS(strings.NewReader(strings.ReplaceAll(sampleICS, "\n", "\r\n")), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(lectures) != 3 {
		t.Fatalf("期望 3 条（BYDAY 展开 2 条 + 线上 1 条，重复去除），实际 %d: %+v", len(lectures), lectures)
	}
	if lectures[0].Day != model.Sunday || lectures[0].Time != "16:00" {
		t.Errorf("第一条期望 الأحد 16:00，实际 %+v", lectures[0])
	}
	if lectures[1].Day != model.Tuesday {
		t.Errorf("第二条期望 الثلاثاء，实际 %s", lectures[1].Day)
	}
	if lectures[2].Type != model.LectureOnline {
		t.Errorf("链接地点期望线上课程，实际 %s", lectures[2].Type)
	}
}

func TestPlanner_ImportICS_Merges(t *testing.T) {
	p := newTestPlanner()
	ctx := context.Background()
	_, _ = p.AddLecture(ctx, scopeA, model.StudentLecture{Subject: "physics", Day: model.Sunday, Time: "16:00"})

	res, err := p.ImportICS(ctx, scopeA, strings.NewReader(strings.ReplaceAll(sampleICS, "\n", "\r\n")), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 2 || res.Skipped != 1 {
		t.Errorf("期望导入 2 跳过 1，实际 %+v", res)
	}
	list, _ := p.Lectures(ctx, scopeA)
	if len(list) != 3 {
		t.Errorf("期望共 3 条，实际 %d", len(list))
	}
}
