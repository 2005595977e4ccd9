package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"manasa/backend/internal/model"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("تعذر إنشاء الملف")
)

// 单次课时在日历中的默认时长
const lectureDuration = time.Hour

// 出勤状态在成绩册中的显示
var statusLabels = map[string]string{
	model.StatusAbsent:  "غائب",
	model.StatusExcused: "معذور",
}

// ExportService 导出业务接口
//
// 设计说明：
//   - 成绩册导出为 Excel (.xlsx)：每名学生一行，每场考试一列
//   - 周课表导出为 iCalendar (.ics)：每个课时一条每周重复事件
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// Gradebook 导出小组成绩册
	Gradebook(ctx context.Context, caller *Caller, groupID string) (*bytes.Buffer, string, error)
	// WeeklyICS 导出调用方的周课表
	WeeklyICS(ctx context.Context, caller *Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	planner *planner.Planner
	w       *groupWriter
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, pl *planner.Planner, w *groupWriter, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &exportService{repo: repo, planner: pl, w: w, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Gradebook 导出成绩册为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：小组名称
//   - 表头：الاسم | اسم المستخدم | الدفع | 各考试标题（满分）
//   - 单元格：出席为分数，缺勤/请假为状态文字，未评分为 "-"

func (s *exportService) Gradebook(ctx context.Context, caller *Caller, groupID string) (*bytes.Buffer, string, error) {
	g, err := s.w.owned(ctx, caller, groupID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "الدرجات"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: boolPtr(true)})

	const fixedCols = 3
	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 10)
	for i := range g.Exams {
		col := colName(fixedCols + i)
		f.SetColWidth(sheetName, col, col, 16)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	lastCol := colName(fixedCols + len(g.Exams) - 1)
	if len(g.Exams) == 0 {
		lastCol = colName(fixedCols - 1)
	}
	f.SetCellValue(sheetName, "A1", g.Name)
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", cell(lastCol, 1), headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "الاسم")
	f.SetCellValue(sheetName, cell("B", row), "اسم المستخدم")
	f.SetCellValue(sheetName, cell("C", row), "الدفع")
	for i, ex := range g.Exams {
		f.SetCellValue(sheetName, cell(colName(fixedCols+i), row), fmt.Sprintf("%s (%d)", ex.Title, ex.MaxGrade))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 3
	for _, st := range g.Students {
		f.SetCellValue(sheetName, cell("A", row), st.Name)
		f.SetCellValue(sheetName, cell("B", row), st.Username)
		paid := "لا"
		if st.Paid {
			paid = "نعم"
		}
		f.SetCellValue(sheetName, cell("C", row), paid)

		for i, ex := range g.Exams {
			c := cell(colName(fixedCols+i), row)
			res, ok := ex.Results[st.ID]
			switch {
			case !ok:
				f.SetCellValue(sheetName, c, "-")
			case res.Status == model.StatusPresent:
				f.SetCellValue(sheetName, c, res.Grade)
			default:
				f.SetCellValue(sheetName, c, statusLabels[res.Status])
			}
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("درجات_%s.xlsx", g.Name), nil
}

// ═══════════════════════════════════════════════════════════
// WeeklyICS 导出周课表为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) WeeklyICS(ctx context.Context, caller *Caller) (*bytes.Buffer, string, error) {
	week, err := weeklySchedule(ctx, s.repo, s.planner, caller, s.logger)
	if err != nil {
		return nil, "", err
	}

	now := s.now().In(s.loc)
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//manasa//weekly-schedule//AR")
	cal.SetXWRCalName("جدولي الأسبوعي")
	cal.SetXWRTimezone(s.loc.String())

	for _, day := range model.Days {
		for _, item := range week[day] {
			if item.Postponed {
				continue
			}
			start, ok := reminder.NextOccurrence(now, day, item.Time)
			if !ok {
				continue
			}
			evt := cal.AddEvent(fmt.Sprintf("%s-%s@manasa", item.Source, item.ID))
			evt.SetDtStampTime(now)
			evt.SetStartAt(start)
			evt.SetEndAt(start.Add(lectureDuration))
			evt.SetSummary(item.Subject)
			if item.Location != "" {
				evt.SetLocation(item.Location)
			}
			evt.AddRrule("FREQ=WEEKLY")
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "schedule.ics", nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func boolPtr(b bool) *bool { return &b }
