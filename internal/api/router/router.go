package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/api/handler"
	"manasa/backend/internal/api/middleware"
	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/session"
	"manasa/backend/pkg/jwt"
	"manasa/backend/pkg/redis"
)

// importRoute ICS 上传单独放宽请求体上限
const importRoute = "/api/v1/planner/lectures/import"

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, sessions *session.Manager, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitKB<<10, map[string]int64{
		importRoute: planner.MaxICSSize + 64<<10, // multipart 边界与表头留出余量
	}))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	teacherOnly := middleware.RoleAuth(model.RoleTeacher)
	authLimit := middleware.RateLimit(rdb, cfg.Server.AuthRateMax, cfg.Server.AuthRateWindow())

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authLimit, h.Auth.Signup)
			auth.POST("/login", authLimit, h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, sessions))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/profile", h.Auth.UpdateProfile)

			// 视图会话
			authorized.GET("/session", h.Session.Current)
			authorized.PUT("/session/view", h.Session.ChangeView)

			// 小组（学生只读，访问范围在 Service 层判断）
			groups := authorized.Group("/groups")
			{
				groups.GET("", h.Group.List)
				groups.GET("/:id", h.Group.Get)
				groups.POST("", teacherOnly, h.Group.Create)
				groups.PUT("/:id", teacherOnly, h.Group.Update)
				groups.DELETE("/:id", teacherOnly, h.Group.Delete)
				groups.POST("/:id/schedule", teacherOnly, h.Group.AddScheduleEntry)
				groups.DELETE("/:id/schedule/:entryId", teacherOnly, h.Group.RemoveScheduleEntry)

				// 名册
				groups.GET("/:id/students", teacherOnly, h.Roster.Students)
				groups.POST("/:id/students", teacherOnly, h.Roster.AddStudent)
				groups.PUT("/:id/students/:sid", teacherOnly, h.Roster.UpdateStudent)
				groups.DELETE("/:id/students/:sid", teacherOnly, h.Roster.RemoveStudent)
				groups.POST("/:id/students/:sid/paid", teacherOnly, h.Roster.TogglePaid)
				groups.POST("/:id/students/:sid/star", teacherOnly, h.Roster.ToggleStar)
				groups.GET("/:id/students/:sid/history", teacherOnly, h.Roster.History)
				groups.GET("/:id/students/:sid/attendance", teacherOnly, h.Roster.Attendance)

				// 考试与评分
				groups.POST("/:id/exams", teacherOnly, h.Exam.AddExam)
				groups.DELETE("/:id/exams/:eid", teacherOnly, h.Exam.DeleteExam)
				groups.PUT("/:id/exams/:eid/results/:sid", teacherOnly, h.Exam.RecordGrade)

				// 导出
				groups.GET("/:id/export/grades", teacherOnly, h.Export.Gradebook)
			}

			// 成绩与周课表
			authorized.GET("/results/me", h.Results.MyResults)
			authorized.GET("/schedule/weekly", h.Results.Weekly)
			authorized.GET("/schedule/weekly.ics", h.Export.WeeklyICS)

			// 个人计划表（需要 X-Device-ID）
			lectures := authorized.Group("/planner/lectures")
			{
				lectures.GET("", h.Planner.Lectures)
				lectures.POST("", h.Planner.AddLecture)
				lectures.POST("/import", h.Planner.ImportLectures)
				lectures.PUT("/:id", h.Planner.UpdateLecture)
				lectures.DELETE("/:id", h.Planner.DeleteLecture)
				lectures.POST("/:id/postpone", h.Planner.TogglePostponed)
			}
			homework := authorized.Group("/planner/homework")
			{
				homework.GET("", h.Planner.Homework)
				homework.POST("", h.Planner.AddHomework)
				homework.POST("/:id/toggle", h.Planner.ToggleHomework)
				homework.DELETE("/:id", h.Planner.DeleteHomework)
			}

			// 提醒与通知
			authorized.POST("/reminders", h.Reminder.Register)
			authorized.GET("/notifications", h.Reminder.Notifications)
			authorized.PUT("/notifications/:id/read", h.Reminder.MarkRead)

			// 实时推送
			authorized.GET("/feed", h.Feed.Subscribe)
		}
	}

	return r, nil
}
