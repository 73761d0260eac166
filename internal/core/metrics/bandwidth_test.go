package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-remoting/pkg/types"
)

func TestRateMeter(t *testing.T) {
	mock := clock.NewMock()
	r := newRateMeter(mock)

	r.Add(600)
	mock.Add(time.Second)
	r.Add(600)

	assert.Equal(t, int64(1200), r.Total())
	assert.InDelta(t, 20.0, r.Rate(), 0.001)

	// 第一个桶滑出窗口
	mock.Add(59 * time.Second)
	assert.Equal(t, int64(600), r.Total())

	// 长时间无数据
	mock.Add(5 * time.Minute)
	assert.Equal(t, int64(0), r.Total())

	r.Add(60)
	r.Reset()
	assert.Equal(t, int64(0), r.Total())

	t.Log("✅ RateMeter 滑动窗口正确")
}

func TestBandwidthCounter(t *testing.T) {
	mock := clock.NewMock()
	bwc := newBandwidthCounter(mock)

	bwc.Record(types.ProtocolGenuineTCP, DirectionOut, 100)
	bwc.Record(types.ProtocolGenuineTCP, DirectionIn, 40)
	bwc.MessageBytes(types.ProtocolGenuineUDP, DirectionOut, 60)
	bwc.Record(types.ProtocolGenuineUDP, DirectionIn, 0)

	totals := bwc.Totals()
	assert.Equal(t, int64(160), totals.TotalOut)
	assert.Equal(t, int64(40), totals.TotalIn)
	assert.InDelta(t, 160.0/60, totals.RateOut, 0.001)

	gtcp := bwc.ForProtocol(types.ProtocolGenuineTCP)
	assert.Equal(t, Stats{TotalIn: 40, TotalOut: 100, RateIn: 40.0 / 60, RateOut: 100.0 / 60}, gtcp)

	assert.Equal(t, []types.ProtocolID{types.ProtocolGenuineTCP, types.ProtocolGenuineUDP}, bwc.Protocols())
	assert.Len(t, bwc.ByProtocol(), 2)
	assert.Equal(t, Stats{}, bwc.ForProtocol(types.ProtocolTCP))

	// 累计值不随窗口滑出
	mock.Add(2 * time.Minute)
	totals = bwc.Totals()
	assert.Equal(t, int64(160), totals.TotalOut)
	assert.Zero(t, totals.RateOut)

	bwc.Reset()
	assert.Equal(t, Stats{}, bwc.Totals())
	assert.Empty(t, bwc.Protocols())

	t.Log("✅ BandwidthCounter 按协议统计")
}

func TestBandwidthCounter_Concurrent(t *testing.T) {
	bwc := NewBandwidthCounter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bwc.Record(types.ProtocolTCPDuplex, DirectionIn, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), bwc.Totals().TotalIn)
	assert.Equal(t, int64(800), bwc.ForProtocol(types.ProtocolTCPDuplex).TotalIn)
}

func TestTee(t *testing.T) {
	assert.Equal(t, Nop(), Tee())
	assert.Equal(t, Nop(), Tee(nil, Nop()))

	a, b := NewBandwidthCounter(), NewBandwidthCounter()
	assert.Same(t, a, Tee(a, Nop()))

	r := Tee(a, b)
	r.MessageBytes(types.ProtocolTCP, DirectionOut, 7)
	r.ChannelConstructed(types.ProtocolTCP)
	r.CacheHit(types.ProtocolTCP)
	r.LocalAddresses(2)

	assert.Equal(t, int64(7), a.Totals().TotalOut)
	assert.Equal(t, int64(7), b.Totals().TotalOut)
}
