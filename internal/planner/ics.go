package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"manasa/backend/internal/model"
)

// ── ICS 导入 ──────────────────────────────────────────────
//
// 将 iCalendar 课表转换为个人课程：
//   - DTSTART 确定星期与开始时间（换算到配置时区）
//   - RRULE 中的 BYDAY 展开为多条（每周一、三上课 → 两条课程）
//   - LOCATION 为链接或 URL 属性存在时视为线上课程
//   - 同 科目+星期+时间 的事件只保留一条
// ─────────────────────────────────────────────────────────────

// MaxICSSize 导入文件大小上限
const MaxICSSize = 2 * 1024 * 1024

// ErrInvalidICS 文件不是合法的 iCalendar
var ErrInvalidICS = errors.New("ICS 格式解析失败")

var byDayToWeekday = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// ImportResult 导入统计（Total 为解析出的课程数，已存在的计入 Skipped）
type ImportResult struct {
	Imported int
	Skipped  int
	Total    int
}

// ParseICS 解析 ICS 内容为个人课程列表（未分配 ID）
func ParseICS(r io.Reader, loc *time.Location) ([]model.StudentLecture, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, MaxICSSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidICS, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	out := []model.StudentLecture{}
	seen := make(map[string]bool)
	for _, evt := range cal.Events() {
		for _, l := range parseLectureEvent(evt, loc) {
			k := lectureKey(l)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, l)
		}
	}
	return out, nil
}

// ImportICS 解析并合并到作用域内的个人课程
func (p *Planner) ImportICS(ctx context.Context, scope Scope, r io.Reader, loc *time.Location) (*ImportResult, error) {
	if _, err := scope.key(kindLectures); err != nil {
		return nil, err
	}
	lectures, err := ParseICS(r, loc)
	if err != nil {
		return nil, err
	}
	added, err := p.MergeLectures(ctx, scope, lectures)
	if err != nil {
		return nil, err
	}
	return &ImportResult{Imported: added, Skipped: len(lectures) - added, Total: len(lectures)}, nil
}

func parseLectureEvent(evt *ics.VEvent, loc *time.Location) []model.StudentLecture {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return nil
	}
	start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil
	}

	location := ""
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		location = strings.TrimSpace(p.Value)
	}
	kind := model.LecturePhysical
	if evt.GetProperty(ics.ComponentPropertyUrl) != nil || strings.HasPrefix(strings.ToLower(location), "http") {
		kind = model.LectureOnline
	}

	weekdays := []time.Weekday{start.Weekday()}
	if rr := evt.GetProperty(ics.ComponentPropertyRrule); rr != nil {
		if days := parseByDay(rr.Value); len(days) > 0 {
			weekdays = days
		}
	}

	out := make([]model.StudentLecture, 0, len(weekdays))
	for _, wd := range weekdays {
		out = append(out, model.StudentLecture{
			Subject:  strings.TrimSpace(summary.Value),
			Day:      model.Days[wd],
			Time:     start.Format("15:04"),
			Type:     kind,
			Location: location,
		})
	}
	return out
}

// parseByDay 提取 RRULE 中的 BYDAY（如 FREQ=WEEKLY;BYDAY=MO,WE）
func parseByDay(rule string) []time.Weekday {
	var days []time.Weekday
	for _, part := range strings.Split(rule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || strings.ToUpper(kv[0]) != "BYDAY" {
			continue
		}
		for _, d := range strings.Split(kv[1], ",") {
			d = strings.ToUpper(strings.TrimSpace(d))
			// 去掉序数前缀，如 1MO / -1FR
			if len(d) > 2 {
				d = d[len(d)-2:]
			}
			if wd, ok := byDayToWeekday[d]; ok {
				days = append(days, wd)
			}
		}
	}
	return days
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
