package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"hotel-insights-go/internal/handler"
	"hotel-insights-go/internal/pipeline"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/database"
	"hotel-insights-go/pkg/kafka"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/notify"
	"hotel-insights-go/pkg/token"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与后台刷新任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, bookingRepo := bootstrap()
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目

	a, err := newApp(ctx, cfg, bookingRepo)
	if err != nil {
		log.Errorf("[App] 初始化失败: %v", err)
		return err
	}

	// 后台任务共享的上下文，停机时取消
	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()
	var wg sync.WaitGroup
	goBackground := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	// 1. 刷新任务
	refresher := pipeline.NewRefresher(func(ctx context.Context) error {
		_, err := a.insightService.Refresh(ctx)
		return err
	}, cfg.Refresh.QueueSize, cfg.Refresh.Debounce(), cfg.Refresh.RebuildTimeout())
	goBackground(func() { refresher.Run(bgCtx) })

	if a.warmUp(ctx) {
		log.Info("[App] 已从持久化索引恢复, 后台重建以获取最新数据")
	}
	refresher.Notify("startup")

	// 2. 刷新信号来源
	if cfg.Database.Driver == database.DriverPostgres || cfg.Database.Driver == "" {
		if cfg.Database.NotifyChannel != "" {
			listener := notify.NewListener(cfg.Database.DSN, cfg.Database.NotifyChannel, cfg.Refresh.WaitTimeout(), func(reason string) {
				refresher.Notify(reason)
			})
			goBackground(func() {
				if err := listener.Run(bgCtx); err != nil {
					log.Errorf("[Notify] 监听失败, 改用其他刷新来源: %v", err)
				}
			})
		}
	}
	if cfg.Kafka.Enabled {
		goBackground(func() { kafka.StartConsumer(bgCtx, cfg.Kafka, refresher) })
	}
	if interval := cfg.Refresh.PollInterval(); interval > 0 {
		goBackground(func() { refresher.Poll(bgCtx, interval) })
	}

	// 3. 服务与路由
	sessions := token.NewSessionManager(cfg.Session.Secret, cfg.Session.ExpireHours)
	chatService := service.NewChatService(a.insightService, newConversationRepository(cfg))

	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.Dependencies{
		Analytics:   service.NewAnalyticsService(bookingRepo),
		Bookings:    service.NewBookingService(bookingRepo, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Chat:        chatService,
		Health:      service.NewHealthService(bookingRepo, a.insightService),
		Insights:    a.insightService,
		Sessions:    sessions,
		Notifier:    refresher,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止刷新任务、监听器与消费者
	cancelBg()
	wg.Wait()
	log.Info("服务已优雅关闭")
	return nil
}
