package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-remoting/pkg/types"
)

// Direction 字节流方向标签
type Direction string

const (
	// DirectionIn 入站
	DirectionIn Direction = "in"
	// DirectionOut 出站
	DirectionOut Direction = "out"
)

// Reporter 记录通道子系统指标
type Reporter interface {
	// ChannelConstructed 记录一次通道构造
	ChannelConstructed(protocol types.ProtocolID)

	// CacheHit 记录一次注册表命中
	CacheHit(protocol types.ProtocolID)

	// LocalAddresses 记录本机地址数量
	LocalAddresses(n int)

	// MessageBytes 记录收发字节
	MessageBytes(protocol types.ProtocolID, dir Direction, n int)
}

// ============================================================================
//                              Prometheus 实现
// ============================================================================

// PrometheusReporter 基于 prometheus 的 Reporter
type PrometheusReporter struct {
	constructed *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	localAddrs  prometheus.Gauge
	bytes       *prometheus.CounterVec
}

var _ Reporter = (*PrometheusReporter)(nil)

// NewPrometheusReporter 创建并注册指标
//
// reg 为 nil 时使用 prometheus.DefaultRegisterer。
// 指标已注册时复用已有的收集器。
func NewPrometheusReporter(reg prometheus.Registerer) *PrometheusReporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &PrometheusReporter{
		constructed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoting",
			Name:      "channels_constructed_total",
			Help:      "Number of channels constructed, by protocol.",
		}, []string{"protocol"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoting",
			Name:      "channel_cache_hits_total",
			Help:      "Number of CreateChannel calls served from the registry, by protocol.",
		}, []string{"protocol"}),
		localAddrs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "remoting",
			Name:      "local_addresses",
			Help:      "Number of externally reachable local addresses, loopback included.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoting",
			Name:      "message_bytes_total",
			Help:      "Bytes carried by channels, by protocol and direction.",
		}, []string{"protocol", "direction"}),
	}

	r.constructed = register(reg, r.constructed)
	r.cacheHits = register(reg, r.cacheHits)
	r.localAddrs = register(reg, r.localAddrs)
	r.bytes = register(reg, r.bytes)
	return r
}

// register 注册收集器，重复注册时返回已存在的实例
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.Warn("注册指标失败", "err", err)
	}
	return c
}

// ChannelConstructed 实现 Reporter
func (r *PrometheusReporter) ChannelConstructed(protocol types.ProtocolID) {
	r.constructed.WithLabelValues(protocol.String()).Inc()
}

// CacheHit 实现 Reporter
func (r *PrometheusReporter) CacheHit(protocol types.ProtocolID) {
	r.cacheHits.WithLabelValues(protocol.String()).Inc()
}

// LocalAddresses 实现 Reporter
func (r *PrometheusReporter) LocalAddresses(n int) {
	r.localAddrs.Set(float64(n))
}

// MessageBytes 实现 Reporter
func (r *PrometheusReporter) MessageBytes(protocol types.ProtocolID, dir Direction, n int) {
	r.bytes.WithLabelValues(protocol.String(), string(dir)).Add(float64(n))
}

// ============================================================================
//                              空实现
// ============================================================================

type nopReporter struct{}

func (nopReporter) ChannelConstructed(types.ProtocolID)           {}
func (nopReporter) CacheHit(types.ProtocolID)                     {}
func (nopReporter) LocalAddresses(int)                            {}
func (nopReporter) MessageBytes(types.ProtocolID, Direction, int) {}

// Nop 返回空操作 Reporter
func Nop() Reporter {
	return nopReporter{}
}

// OrNop r 为 nil 时返回 Nop()
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop()
	}
	return r
}

// ============================================================================
//                              组合
// ============================================================================

type teeReporter []Reporter

func (t teeReporter) ChannelConstructed(protocol types.ProtocolID) {
	for _, r := range t {
		r.ChannelConstructed(protocol)
	}
}

func (t teeReporter) CacheHit(protocol types.ProtocolID) {
	for _, r := range t {
		r.CacheHit(protocol)
	}
}

func (t teeReporter) LocalAddresses(n int) {
	for _, r := range t {
		r.LocalAddresses(n)
	}
}

func (t teeReporter) MessageBytes(protocol types.ProtocolID, dir Direction, n int) {
	for _, r := range t {
		r.MessageBytes(protocol, dir, n)
	}
}

// Tee 将调用依次转发给多个 Reporter
//
// nil 与 Nop() 会被跳过；只剩一个时直接返回它。
func Tee(reporters ...Reporter) Reporter {
	var out teeReporter
	for _, r := range reporters {
		if r == nil || r == Nop() {
			continue
		}
		out = append(out, r)
	}
	switch len(out) {
	case 0:
		return Nop()
	case 1:
		return out[0]
	default:
		return out
	}
}
