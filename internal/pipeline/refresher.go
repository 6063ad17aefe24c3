// Package pipeline 定义了洞察刷新的后台流程：收集触发信号、去抖、串行重建。
package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"hotel-insights-go/pkg/log"
	"hotel-insights-go/pkg/tasks"
)

// 默认参数
const (
	DefaultQueueSize      = 16
	DefaultDebounce       = 2 * time.Second
	DefaultRebuildTimeout = 5 * time.Minute
)

// RebuildFunc 执行一次全量重建。
type RebuildFunc func(ctx context.Context) error

// Refresher 把任意来源的刷新信号合并为串行的重建。
// 同一时刻只有一个工作协程在重建，一串密集的信号只触发一次重建。
type Refresher struct {
	rebuild  RebuildFunc
	events   chan string
	debounce time.Duration
	timeout  time.Duration

	dropped  atomic.Int64
	rebuilds atomic.Int64
}

// NewRefresher 创建一个 Refresher。非正数参数使用默认值。
func NewRefresher(rebuild RebuildFunc, queueSize int, debounce, timeout time.Duration) *Refresher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if timeout <= 0 {
		timeout = DefaultRebuildTimeout
	}
	return &Refresher{
		rebuild:  rebuild,
		events:   make(chan string, queueSize),
		debounce: debounce,
		timeout:  timeout,
	}
}

// Notify 投递一个刷新信号，从不阻塞。队列已满时丢弃并返回 false，
// 此时已有待执行的重建，新数据会被它覆盖。
func (r *Refresher) Notify(reason string) bool {
	select {
	case r.events <- reason:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Rebuilds 返回已执行的重建次数。
func (r *Refresher) Rebuilds() int64 {
	return r.rebuilds.Load()
}

// HandleBookingChange 让 Refresher 可以直接作为 Kafka 事件处理器。
func (r *Refresher) HandleBookingChange(_ context.Context, event tasks.BookingChangeEvent) error {
	r.Notify("kafka:" + event.Op)
	return nil
}

// Run 运行工作协程，直到 ctx 取消。
func (r *Refresher) Run(ctx context.Context) {
	log.Infof("[Refresher] 已启动, debounce=%s timeout=%s", r.debounce, r.timeout)
	for {
		select {
		case <-ctx.Done():
			log.Info("[Refresher] 已停止")
			return
		case reason := <-r.events:
			reasons, ok := r.collect(ctx, reason)
			if !ok {
				log.Info("[Refresher] 已停止")
				return
			}
			r.runOnce(ctx, reasons)
		}
	}
}

// collect 持续接收信号，直到 debounce 窗口内没有新信号。
func (r *Refresher) collect(ctx context.Context, first string) ([]string, bool) {
	reasons := []string{first}
	timer := time.NewTimer(r.debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case reason := <-r.events:
			reasons = append(reasons, reason)
			timer.Reset(r.debounce)
		case <-timer.C:
			return reasons, true
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context, reasons []string) {
	rebuildCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	log.Infof("[Refresher] 开始重建, 合并了 %d 个信号: %s", len(reasons), summarize(reasons))
	err := r.rebuild(rebuildCtx)
	r.rebuilds.Add(1)
	if err != nil {
		log.Errorf("[Refresher] 重建失败, 保留当前快照: %v", err)
		return
	}
	log.Infof("[Refresher] 重建完成, 耗时 %s", time.Since(start))
}

func summarize(reasons []string) string {
	seen := make(map[string]bool)
	var uniq []string
	for _, r := range reasons {
		if !seen[r] {
			seen[r] = true
			uniq = append(uniq, r)
		}
	}
	return strings.Join(uniq, ",")
}

// Poll 按固定间隔投递刷新信号，用于无法 LISTEN 的数据库。
func (r *Refresher) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Notify("poll")
		}
	}
}
