package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/api/handler"
	"manasa/backend/internal/api/router"
	"manasa/backend/internal/feed"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/service"
	"manasa/backend/internal/session"
	"manasa/backend/pkg/database"
	"manasa/backend/pkg/jwt"
	applogger "manasa/backend/pkg/logger"
	"manasa/backend/pkg/redis"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("reminder", cfg.Reminder.Enabled),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：关闭或连接失败时降级为进程内实现）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，黑名单/限流/跨实例推送将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 基础组件
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	gate := identity.NewGate(&cfg.Auth, repo, logger)
	sessions := session.NewManager()

	// 6. 变更协调器与推送中心（协调器提交后通知推送中心）
	hub := feed.NewHub(repo.Group, rdb, &cfg.Feed, logger)
	coord := mutation.NewCoordinator(repo.Group, hub, logger)

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()
	go hub.Run(rootCtx)

	// 7. 个人计划表存储
	var plannerStore planner.Store
	if rdb != nil {
		plannerStore = planner.NewRedisStore(rdb, cfg.Planner.TTL)
	} else {
		plannerStore = planner.NewMemoryStore()
	}
	pl := planner.New(plannerStore, logger)

	// 8. 上课提醒
	var reminders *reminder.Worker
	if cfg.Reminder.Enabled {
		reminders = reminder.NewWorker(&cfg.Reminder, service.NewReminderDelivery(repo, hub, logger), logger)
		if err := reminders.Start(); err != nil {
			logger.Fatal("启动提醒任务失败", zap.Error(err))
		}
	}

	// 8.1 清理长期未访问的会话并断开其推送连接
	housekeeping := cron.New()
	if _, err := housekeeping.AddFunc("@every 10m", func() {
		expired := sessions.Sweep(cfg.Auth.AccessTokenTTL)
		for _, id := range expired {
			hub.CloseSession(rootCtx, id)
		}
		if len(expired) > 0 {
			logger.Info("清理过期会话", zap.Int("count", len(expired)))
		}
	}); err != nil {
		logger.Fatal("注册会话清理任务失败", zap.Error(err))
	}
	housekeeping.Start()

	// 9. 依赖注入: Repository → Service → Handler
	svc := service.NewService(service.Deps{
		Config:      cfg,
		Repo:        repo,
		Gate:        gate,
		JWT:         jwtMgr,
		Redis:       rdb,
		Sessions:    sessions,
		Feed:        hub,
		Coordinator: coord,
		Planner:     pl,
		Reminders:   reminders,
		Logger:      logger,
	})
	h := handler.NewHandler(rootCtx, cfg, svc, hub, logger)

	// 10. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, rdb, sessions, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 11. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 12. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止后台任务并断开推送连接
	<-housekeeping.Stop().Done()
	if reminders != nil {
		reminders.Stop()
	}
	stopRoot()
	hub.Wait()

	// 关闭数据库连接
	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
