// Package notify 监听 Postgres 的 NOTIFY 事件，把它们转换为刷新信号。
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"hotel-insights-go/pkg/log"
)

// Trigger 收到通知时被调用，reason 说明触发来源。
type Trigger func(reason string)

// Listener 包装 pq.Listener，对一个频道执行 LISTEN。
type Listener struct {
	dsn         string
	channel     string
	waitTimeout time.Duration
	trigger     Trigger
}

// NewListener 创建一个监听 channel 的 Listener。waitTimeout 为单次等待时长，
// 超时后会 ping 一次连接以检测断线。
func NewListener(dsn, channel string, waitTimeout time.Duration, trigger Trigger) *Listener {
	if waitTimeout <= 0 {
		waitTimeout = 90 * time.Second
	}
	return &Listener{dsn: dsn, channel: channel, waitTimeout: waitTimeout, trigger: trigger}
}

// Run 阻塞直到 ctx 取消。LISTEN 失败时立即返回错误。
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warnf("[Notify] 监听连接事件 %d: %v", ev, err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen on channel %q failed: %w", l.channel, err)
	}
	log.Infof("[Notify] 正在监听频道 '%s'", l.channel)

	return l.loop(ctx, listener.Notify, listener)
}

type pinger interface {
	Ping() error
}

// loop 在当前协程内 ping，返回时不会留下仍在使用连接的 ping。
func (l *Listener) loop(ctx context.Context, notifications <-chan *pq.Notification, conn pinger) error {
	for {
		select {
		case n := <-notifications:
			// 重连后 pq 会发送 nil 通知，期间可能丢失事件，同样触发刷新
			if n == nil {
				l.trigger("notify:reconnect")
				continue
			}
			log.Infof("[Notify] 收到频道 '%s' 的通知, payload=%q", n.Channel, n.Extra)
			l.trigger("notify:" + n.Channel)
		case <-time.After(l.waitTimeout):
			if err := conn.Ping(); err != nil {
				log.Warnf("[Notify] ping 失败: %v", err)
			}
		case <-ctx.Done():
			log.Info("[Notify] 停止监听")
			return nil
		}
	}
}
