package notifier

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-trend-sentry/pkg/types"
)

// fakeChannel 可编程的测试渠道：按调用次数依次返回预设错误
type fakeChannel struct {
	kind  types.ChannelKind
	errs  []error
	calls int32
}

func (f *fakeChannel) Kind() types.ChannelKind { return f.kind }

func (f *fakeChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{}
}

func (f *fakeChannel) Send(ctx context.Context, r *types.Report) error {
	n := atomic.AddInt32(&f.calls, 1)
	if int(n) <= len(f.errs) {
		return f.errs[n-1]
	}
	return nil
}

func testReport() *types.Report {
	return &types.Report{
		Timestamp: time.Now(),
		Decisions: []types.Decision{
			{Symbol: "BTC-USDT", Action: types.ActionWatch},
		},
	}
}

func fastNotifyConfig() types.NotifyConfig {
	return types.NotifyConfig{
		RetryMax:       3,
		RetryBaseDelay: time.Millisecond,
		JobTimeout:     5 * time.Second,
	}
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	a := &fakeChannel{kind: "a"}
	b := &fakeChannel{kind: "b", errs: []error{
		Permanentf("鉴权失败"), Permanentf("鉴权失败"), Permanentf("鉴权失败"),
	}}
	c := &fakeChannel{kind: "c"}

	d := NewDispatcher([]Channel{a, b, c}, fastNotifyConfig())
	results, err := d.Dispatch(context.Background(), testReport())

	require.NoError(t, err)
	require.Len(t, results, 3)

	// 结果顺序与渠道注册顺序一致
	assert.Equal(t, types.ChannelKind("a"), results[0].Channel)
	assert.Equal(t, types.ChannelKind("b"), results[1].Channel)
	assert.Equal(t, types.ChannelKind("c"), results[2].Channel)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.NotEmpty(t, results[1].LastError)
}

func TestDispatchRetriesTransientThenSucceeds(t *testing.T) {
	ch := &fakeChannel{kind: "wecom", errs: []error{
		Transientf("超时"), Transientf("503"),
	}}

	d := NewDispatcher([]Channel{ch}, fastNotifyConfig())
	results, err := d.Dispatch(context.Background(), testReport())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestDispatchPermanentErrorNotRetried(t *testing.T) {
	ch := &fakeChannel{kind: "telegram", errs: []error{
		Permanentf("chat_id无效"),
	}}

	d := NewDispatcher([]Channel{ch}, fastNotifyConfig())
	results, err := d.Dispatch(context.Background(), testReport())

	require.ErrorIs(t, err, ErrAllChannelsFailed)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	// 永久错误第一次失败后即放弃
	assert.Equal(t, 1, results[0].Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ch.calls))
}

func TestDispatchAllChannelsFailed(t *testing.T) {
	mk := func(kind types.ChannelKind) *fakeChannel {
		return &fakeChannel{kind: kind, errs: []error{
			Transientf("失败"), Transientf("失败"), Transientf("失败"),
		}}
	}

	d := NewDispatcher([]Channel{mk("a"), mk("b")}, fastNotifyConfig())
	results, err := d.Dispatch(context.Background(), testReport())

	require.ErrorIs(t, err, ErrAllChannelsFailed)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, 3, r.Attempts)
	}
}

func TestDispatchNoChannels(t *testing.T) {
	d := NewDispatcher(nil, fastNotifyConfig())
	_, err := d.Dispatch(context.Background(), testReport())
	assert.ErrorIs(t, err, ErrAllChannelsFailed)
}

// slowChannel 模拟持续阻塞直到context取消的渠道
type slowChannel struct{}

func (s *slowChannel) Kind() types.ChannelKind { return "slow" }

func (s *slowChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{}
}

func (s *slowChannel) Send(ctx context.Context, r *types.Report) error {
	<-ctx.Done()
	return Transientf("超时: %v", ctx.Err())
}

// stubbornChannel 无视context的渠道：固定睡满指定时长后返回成功
type stubbornChannel struct {
	sleep time.Duration
}

func (s *stubbornChannel) Kind() types.ChannelKind { return "stubborn" }

func (s *stubbornChannel) Capabilities() types.ChannelCapabilities {
	return types.ChannelCapabilities{}
}

func (s *stubbornChannel) Send(ctx context.Context, r *types.Report) error {
	time.Sleep(s.sleep)
	return nil
}

func TestDispatchJobTimeoutBoundsContextIgnoringChannel(t *testing.T) {
	cfg := types.NotifyConfig{
		RetryMax:       3,
		RetryBaseDelay: time.Millisecond,
		JobTimeout:     50 * time.Millisecond,
	}

	ok := &fakeChannel{kind: "ok"}
	stuck := &stubbornChannel{sleep: 3 * time.Second}

	d := NewDispatcher([]Channel{ok, stuck}, cfg)

	start := time.Now()
	results, err := d.Dispatch(context.Background(), testReport())
	elapsed := time.Since(start)

	// 超时硬性生效：不等无视context的渠道睡醒
	assert.Less(t, elapsed, time.Second)

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, types.ChannelKind("ok"), results[0].Channel)
	assert.True(t, results[0].Success)

	// 超时后完成的发送不得记为成功
	assert.Equal(t, types.ChannelKind("stubborn"), results[1].Channel)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].LastError, "超时")
}

func TestDispatchJobTimeout(t *testing.T) {
	cfg := types.NotifyConfig{
		RetryMax:       3,
		RetryBaseDelay: time.Second,
		JobTimeout:     50 * time.Millisecond,
	}

	d := NewDispatcher([]Channel{&slowChannel{}}, cfg)

	start := time.Now()
	results, err := d.Dispatch(context.Background(), testReport())

	require.ErrorIs(t, err, ErrAllChannelsFailed)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	// 作业超时生效，不会等满全部重试退避
	assert.Less(t, time.Since(start), 2*time.Second)
}
