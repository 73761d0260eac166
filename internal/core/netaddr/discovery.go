// Package netaddr 实现本机可达地址发现
//
// Discovery 在首次查询时枚举一次网卡并缓存结果（LocalAddressSet），
// 之后所有查询都是对缓存集合的纯查找：
//
//	UNINITIALIZED → (首次查询) → COMPUTING → CACHED
//
// 不存在回到 UNINITIALIZED 的转换；需要新的网卡状态时创建新的 Discovery。
package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/netaddr")

var (
	loopbackV4 = netip.AddrFrom4([4]byte{127, 0, 0, 1})
	loopbackV6 = netip.IPv6Loopback()
)

// DefaultLookupTimeout 主机名解析默认超时
const DefaultLookupTimeout = 5 * time.Second

// Discovery 本机地址发现
type Discovery struct {
	source        Source
	lookupTimeout time.Duration
	reporter      metrics.Reporter

	once     sync.Once
	addrs    []netip.Addr
	index    map[netip.Addr]struct{}
	loopback netip.Addr
	err      error
}

var _ pkgif.LocalAddresses = (*Discovery)(nil)

// Option Discovery 选项
type Option func(*Discovery)

// WithSource 替换系统能力来源
func WithSource(src Source) Option {
	return func(d *Discovery) {
		if src != nil {
			d.source = src
		}
	}
}

// WithLookupTimeout 设置主机名解析超时
func WithLookupTimeout(timeout time.Duration) Option {
	return func(d *Discovery) {
		if timeout > 0 {
			d.lookupTimeout = timeout
		}
	}
}

// WithReporter 设置指标记录器
func WithReporter(r metrics.Reporter) Option {
	return func(d *Discovery) {
		d.reporter = metrics.OrNop(r)
	}
}

// New 创建 Discovery，此时不做任何枚举
func New(opts ...Option) *Discovery {
	d := &Discovery{
		source:        SystemSource{},
		lookupTimeout: DefaultLookupTimeout,
		reporter:      metrics.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ============================================================================
//                              查询
// ============================================================================

// Addresses 返回缓存的地址列表
//
// 顺序为发现顺序，回环地址总在最后。
func (d *Discovery) Addresses() []netip.Addr {
	d.init()
	out := make([]netip.Addr, len(d.addrs))
	copy(out, d.addrs)
	return out
}

// Strings 以字符串形式返回地址列表
func (d *Discovery) Strings() []string {
	addrs := d.Addresses()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// Contains 报告 host 是否为本机地址
//
// host 可以带方括号或 IPv6 zone；非 IP 字面量（如通道标识）一律返回 false。
func (d *Discovery) Contains(host string) bool {
	addr, ok := parseHost(host)
	if !ok {
		return false
	}
	d.init()
	_, found := d.index[addr]
	return found
}

// Best 返回最适合对外公布的地址：第一个非回环地址，否则回环地址
func (d *Discovery) Best() netip.Addr {
	d.init()
	for _, a := range d.addrs {
		if !a.IsLoopback() {
			return a
		}
	}
	return d.loopback
}

// Loopback 返回与首选地址族一致的回环地址
func (d *Discovery) Loopback() netip.Addr {
	d.init()
	return d.loopback
}

// Err 返回枚举与降级路径均失败时的错误
//
// 此时地址集合只包含回环地址。
func (d *Discovery) Err() error {
	d.init()
	return d.err
}

// ============================================================================
//                              计算
// ============================================================================

func (d *Discovery) init() {
	d.once.Do(d.compute)
}

func (d *Discovery) compute() {
	start := time.Now()

	v4 := d.source.SupportsIPv4()
	d.loopback = loopbackV6
	if v4 {
		d.loopback = loopbackV4
	}

	var found []netip.Addr
	ifaces, enumErr := d.source.Interfaces()
	if enumErr == nil {
		found = d.collect(ifaces, v4)
	} else {
		logger.Warn("网卡枚举失败，降级为主机名解析", "err", enumErr)

		ctx, cancel := context.WithTimeout(context.Background(), d.lookupTimeout)
		resolved, lookupErr := d.source.LookupHost(ctx)
		cancel()
		if lookupErr != nil {
			d.err = fmt.Errorf("%w: %w", types.ErrAddressDiscovery, errors.Join(enumErr, lookupErr))
			logger.Error("本机地址发现失败，仅使用回环地址", "err", d.err)
		}
		found = resolved
	}

	d.index = make(map[netip.Addr]struct{}, len(found)+1)
	d.addrs = make([]netip.Addr, 0, len(found)+1)
	for _, a := range found {
		a = a.Unmap()
		if !a.IsValid() || a == d.loopback {
			continue
		}
		if _, dup := d.index[a]; dup {
			continue
		}
		d.index[a] = struct{}{}
		d.addrs = append(d.addrs, a)
	}
	// 部分运行时的网卡枚举不包含回环地址
	d.index[d.loopback] = struct{}{}
	d.addrs = append(d.addrs, d.loopback)

	d.reporter.LocalAddresses(len(d.addrs))
	logger.Debug("本机地址发现完成", "addrs", len(d.addrs), "ipv4", v4, "elapsed", time.Since(start))
}

// collect 从网卡快照中收集可达地址
//
// 只保留启用且暴露默认网关的网卡上、属于首选地址族的单播地址。
func (d *Discovery) collect(ifaces []Interface, v4 bool) []netip.Addr {
	gateways, gwErr := d.source.Gateways()
	if gwErr != nil {
		logger.Debug("默认网关发现失败，按全局单播地址筛选网卡", "err", gwErr)
	}

	var out []netip.Addr
	for _, iface := range ifaces {
		if !iface.Up {
			continue
		}
		if !exposesGateway(iface, gateways) {
			logger.Debug("跳过无默认网关的网卡", "iface", iface.Name)
			continue
		}
		for _, p := range iface.Prefixes {
			a := p.Addr().Unmap()
			if a.Is4() != v4 {
				continue
			}
			if a.IsUnspecified() || a.IsMulticast() || a.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// exposesGateway 报告网卡是否暴露默认网关
//
// 网关已知时：网卡任一网段包含网关地址；
// 网关未知时：网卡拥有全局单播地址（排除仅有链路本地地址的虚拟网卡）。
func exposesGateway(iface Interface, gateways []netip.Addr) bool {
	if iface.Loopback {
		return false
	}
	if len(gateways) > 0 {
		for _, p := range iface.Prefixes {
			for _, gw := range gateways {
				if p.Masked().Contains(gw.Unmap()) {
					return true
				}
			}
		}
		return false
	}
	for _, p := range iface.Prefixes {
		a := p.Addr()
		if a.IsGlobalUnicast() && !a.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}

// parseHost 解析 URL host 部分为地址
func parseHost(host string) (netip.Addr, bool) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone("").Unmap(), true
}

var defaultDiscovery = sync.OnceValue(func() *Discovery {
	return New()
})

// Default 返回进程级共享的 Discovery
func Default() *Discovery {
	return defaultDiscovery()
}
