package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowPinger struct {
	calls    atomic.Int32
	inflight atomic.Int32
}

func (p *slowPinger) Ping() error {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	p.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return errors.New("connection reset")
}

type reasons struct {
	mu  sync.Mutex
	got []string
}

func (r *reasons) add(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, reason)
}

func (r *reasons) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestListenerLoop_TriggersOnNotifications(t *testing.T) {
	var got reasons
	l := NewListener("", "new_data", time.Hour, got.add)
	notifications := make(chan *pq.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.loop(ctx, notifications, &slowPinger{}) }()

	notifications <- &pq.Notification{Channel: "new_data", Extra: "42"}
	notifications <- nil
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"notify:new_data", "notify:reconnect"}, got.list())
}

func TestListenerLoop_PingsInlineOnTimeout(t *testing.T) {
	l := NewListener("", "new_data", time.Millisecond, func(string) {})
	p := &slowPinger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.loop(ctx, make(chan *pq.Notification), p) }()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// 返回之后没有仍在进行的 ping
	assert.Equal(t, int32(0), p.inflight.Load())
	calls := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load())
}
