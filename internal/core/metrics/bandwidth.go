package metrics

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-remoting/pkg/types"
)

// meter 单个方向的累计值与速率
type meter struct {
	total atomic.Int64
	rate  *RateMeter
}

func (m *meter) add(n int64) {
	m.total.Add(n)
	m.rate.Add(n)
}

func (m *meter) reset() {
	m.total.Store(0)
	m.rate.Reset()
}

// BandwidthCounter 通道流量计数器
//
// 按协议跟踪通道收发的字节数，供进程内查询（CLI 与诊断）。
// 作为 Reporter 使用时只处理 MessageBytes，其余调用为空操作。
type BandwidthCounter struct {
	clock clock.Clock

	totalIn  *meter
	totalOut *meter

	mu          sync.RWMutex
	protocolIn  map[types.ProtocolID]*meter
	protocolOut map[types.ProtocolID]*meter
}

var _ Reporter = (*BandwidthCounter)(nil)

// NewBandwidthCounter 创建流量计数器
func NewBandwidthCounter() *BandwidthCounter {
	return newBandwidthCounter(clock.New())
}

func newBandwidthCounter(clk clock.Clock) *BandwidthCounter {
	return &BandwidthCounter{
		clock:       clk,
		totalIn:     &meter{rate: newRateMeter(clk)},
		totalOut:    &meter{rate: newRateMeter(clk)},
		protocolIn:  make(map[types.ProtocolID]*meter),
		protocolOut: make(map[types.ProtocolID]*meter),
	}
}

// Record 记录一次收发
func (bwc *BandwidthCounter) Record(protocol types.ProtocolID, dir Direction, n int) {
	if n <= 0 {
		return
	}
	size := int64(n)
	if dir == DirectionIn {
		bwc.totalIn.add(size)
	} else {
		bwc.totalOut.add(size)
	}
	bwc.protocolMeter(protocol, dir).add(size)
}

// byDirection 返回方向对应的协议表，调用方持有锁
func (bwc *BandwidthCounter) byDirection(dir Direction) map[types.ProtocolID]*meter {
	if dir == DirectionIn {
		return bwc.protocolIn
	}
	return bwc.protocolOut
}

// protocolMeter 返回协议对应的计数器，不存在时创建
func (bwc *BandwidthCounter) protocolMeter(protocol types.ProtocolID, dir Direction) *meter {
	bwc.mu.RLock()
	c := bwc.byDirection(dir)[protocol]
	bwc.mu.RUnlock()
	if c != nil {
		return c
	}

	bwc.mu.Lock()
	defer bwc.mu.Unlock()
	m := bwc.byDirection(dir)
	if c = m[protocol]; c == nil {
		c = &meter{rate: newRateMeter(bwc.clock)}
		m[protocol] = c
	}
	return c
}

// Totals 返回所有协议的合计
func (bwc *BandwidthCounter) Totals() Stats {
	return snapshot(bwc.totalIn, bwc.totalOut)
}

// ForProtocol 返回单个协议的统计
func (bwc *BandwidthCounter) ForProtocol(protocol types.ProtocolID) Stats {
	bwc.mu.RLock()
	in, out := bwc.protocolIn[protocol], bwc.protocolOut[protocol]
	bwc.mu.RUnlock()
	return snapshot(in, out)
}

// ByProtocol 返回各协议的统计
func (bwc *BandwidthCounter) ByProtocol() map[types.ProtocolID]Stats {
	out := make(map[types.ProtocolID]Stats)
	for _, p := range bwc.Protocols() {
		out[p] = bwc.ForProtocol(p)
	}
	return out
}

// Protocols 返回出现过流量的协议（排序）
func (bwc *BandwidthCounter) Protocols() []types.ProtocolID {
	bwc.mu.RLock()
	seen := make(map[types.ProtocolID]struct{}, len(bwc.protocolIn)+len(bwc.protocolOut))
	for p := range bwc.protocolIn {
		seen[p] = struct{}{}
	}
	for p := range bwc.protocolOut {
		seen[p] = struct{}{}
	}
	bwc.mu.RUnlock()

	out := make([]types.ProtocolID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset 清空所有统计
func (bwc *BandwidthCounter) Reset() {
	bwc.totalIn.reset()
	bwc.totalOut.reset()

	bwc.mu.Lock()
	defer bwc.mu.Unlock()
	bwc.protocolIn = make(map[types.ProtocolID]*meter)
	bwc.protocolOut = make(map[types.ProtocolID]*meter)
}

func snapshot(in, out *meter) Stats {
	var s Stats
	if in != nil {
		s.TotalIn = in.total.Load()
		s.RateIn = in.rate.Rate()
	}
	if out != nil {
		s.TotalOut = out.total.Load()
		s.RateOut = out.rate.Rate()
	}
	return s
}

// ChannelConstructed 实现 Reporter
func (bwc *BandwidthCounter) ChannelConstructed(types.ProtocolID) {}

// CacheHit 实现 Reporter
func (bwc *BandwidthCounter) CacheHit(types.ProtocolID) {}

// LocalAddresses 实现 Reporter
func (bwc *BandwidthCounter) LocalAddresses(int) {}

// MessageBytes 实现 Reporter
func (bwc *BandwidthCounter) MessageBytes(protocol types.ProtocolID, dir Direction, n int) {
	bwc.Record(protocol, dir, n)
}
