package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"hotel-insights-go/internal/service"
	"hotel-insights-go/pkg/kafka"
	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/tasks"
)

func newGenerateCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "插入随机预订记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "插入的记录数")
	return cmd
}

func runGenerate(ctx context.Context, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, bookingRepo := bootstrap()
	defer log.Sync()

	gen := service.NewBookingService(bookingRepo, rand.New(rand.NewSource(time.Now().UnixNano())))
	written, err := gen.GenerateN(ctx, count)
	if err != nil {
		log.Errorf("[Generate] 已写入 %d 条后失败: %v", written, err)
		return err
	}
	total, err := bookingRepo.Count(ctx)
	if err != nil {
		log.Warnf("[Generate] 统计预订记录失败: %v", err)
	}
	log.Infof("[Generate] 已写入 %d 条预订记录, 当前共 %d 条", written, total)

	// 通过 Kafka 通知正在运行的服务刷新
	if cfg.Kafka.Enabled && written > 0 {
		kafka.InitProducer(cfg.Kafka)
		defer func() {
			if err := kafka.CloseProducer(); err != nil {
				log.Warnf("[Kafka] 关闭生产者失败: %v", err)
			}
		}()
		if err := kafka.PublishBookingChange(ctx, tasks.BookingChangeEvent{Op: tasks.OpInsert}); err != nil {
			log.Warnf("[Kafka] 发送预订变更事件失败: %v", err)
		}
	}
	return nil
}
