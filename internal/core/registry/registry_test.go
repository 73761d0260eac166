package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

type testChannel struct {
	name     string
	closed   atomic.Bool
	closeErr error
}

func (c *testChannel) Name() string { return c.name }

func (c *testChannel) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

func builder(name string, calls *atomic.Int32) func() (*pkgif.ChannelHandle, error) {
	return func() (*pkgif.ChannelHandle, error) {
		calls.Add(1)
		// 放大竞争窗口
		time.Sleep(10 * time.Millisecond)
		return &pkgif.ChannelHandle{Channel: &testChannel{name: name}}, nil
	}
}

func TestRegistry_SameHandle(t *testing.T) {
	r := New(nil)
	var calls atomic.Int32

	first, err := r.GetOrCreate("gtcp-client", types.ProtocolGenuineTCP, builder("gtcp-client", &calls))
	require.NoError(t, err)
	second, err := r.GetOrCreate("gtcp-client", types.ProtocolGenuineTCP, builder("gtcp-client", &calls))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "gtcp-client", first.Name)
	assert.Equal(t, types.ProtocolGenuineTCP, first.Protocol)

	h, ok := r.Lookup("gtcp-client")
	assert.True(t, ok)
	assert.Same(t, first, h)

	t.Log("✅ 同名第二次获取返回同一句柄")
}

func TestRegistry_ConcurrentSingleConstruction(t *testing.T) {
	r := New(nil)
	var calls atomic.Int32

	const n = 50
	handles := make([]*pkgif.ChannelHandle, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.GetOrCreate("tcpex-client", types.ProtocolTCPDuplex, builder("tcpex-client", &calls))
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, []string{"tcpex-client"}, r.Names())

	t.Log("✅ 50 个并发调用只构造一次")
}

func TestRegistry_DistinctNamesConstructIndependently(t *testing.T) {
	r := New(nil)
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("ch-%d", i)
			_, err := r.GetOrCreate(name, types.ProtocolTCP, builder(name, &calls))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(8), calls.Load())
	assert.Equal(t, 8, r.Len())
}

func TestRegistry_FailedBuildNotCached(t *testing.T) {
	r := New(nil)
	boom := errors.New("bind: address in use")

	_, err := r.GetOrCreate("gudp-server", types.ProtocolGenuineUDP, func() (*pkgif.ChannelHandle, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := r.Lookup("gudp-server")
	assert.False(t, ok)

	var calls atomic.Int32
	h, err := r.GetOrCreate("gudp-server", types.ProtocolGenuineUDP, builder("gudp-server", &calls))
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegistry_NilHandle(t *testing.T) {
	r := New(nil)
	_, err := r.GetOrCreate("x", types.ProtocolTCP, func() (*pkgif.ChannelHandle, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Empty(t, r.Names())
}

func TestRegistry_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rep := metrics.NewPrometheusReporter(reg)
	r := New(rep)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := r.GetOrCreate("gtcp-a", types.ProtocolGenuineTCP, builder("gtcp-a", &calls))
		require.NoError(t, err)
	}

	expected := `
# HELP remoting_channel_cache_hits_total Number of CreateChannel calls served from the registry, by protocol.
# TYPE remoting_channel_cache_hits_total counter
remoting_channel_cache_hits_total{protocol="gtcp"} 2
# HELP remoting_channels_constructed_total Number of channels constructed, by protocol.
# TYPE remoting_channels_constructed_total counter
remoting_channels_constructed_total{protocol="gtcp"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"remoting_channels_constructed_total", "remoting_channel_cache_hits_total"))
}

func TestRegistry_Close(t *testing.T) {
	r := New(nil)
	a := &testChannel{name: "a"}
	b := &testChannel{name: "b", closeErr: errors.New("already closed")}

	_, err := r.GetOrCreate("a", types.ProtocolTCP, func() (*pkgif.ChannelHandle, error) {
		return &pkgif.ChannelHandle{Channel: a}, nil
	})
	require.NoError(t, err)
	_, err = r.GetOrCreate("b", types.ProtocolTCP, func() (*pkgif.ChannelHandle, error) {
		return &pkgif.ChannelHandle{Channel: b}, nil
	})
	require.NoError(t, err)

	err = r.Close()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "close b")
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.Zero(t, r.Len())

	// 关闭后不再接受新通道，新构造的通道被立即关闭
	c := &testChannel{name: "c"}
	_, err = r.GetOrCreate("c", types.ProtocolTCP, func() (*pkgif.ChannelHandle, error) {
		return &pkgif.ChannelHandle{Channel: c}, nil
	})
	assert.ErrorIs(t, err, types.ErrChannelClosed)
	assert.True(t, c.closed.Load())

	assert.NoError(t, r.Close())
}

func TestModule(t *testing.T) {
	ch := &testChannel{name: "fx"}
	var r pkgif.ChannelRegistry

	app := fxtest.New(t,
		fx.Provide(func() metrics.Reporter { return metrics.Nop() }),
		Module,
		fx.Populate(&r),
	)
	app.RequireStart()

	_, err := r.GetOrCreate("fx", types.ProtocolTCP, func() (*pkgif.ChannelHandle, error) {
		return &pkgif.ChannelHandle{Channel: ch}, nil
	})
	require.NoError(t, err)

	app.RequireStop()
	assert.True(t, ch.closed.Load())
}
