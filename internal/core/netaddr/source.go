package netaddr

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"

	"github.com/jackpal/gateway"
	"github.com/wlynxg/anet"
)

// Interface 网卡快照
type Interface struct {
	// Name 网卡名称
	Name string

	// Up 是否启用
	Up bool

	// Loopback 是否回环网卡
	Loopback bool

	// Prefixes 网卡上的单播地址（带前缀长度）
	Prefixes []netip.Prefix
}

// Source 地址发现所需的系统能力
//
// 默认实现为 SystemSource，测试中可替换。
type Source interface {
	// Interfaces 枚举网卡
	Interfaces() ([]Interface, error)

	// Gateways 返回默认网关地址
	Gateways() ([]netip.Addr, error)

	// LookupHost 解析本机主机名（降级路径）
	LookupHost(ctx context.Context) ([]netip.Addr, error)

	// SupportsIPv4 报告系统是否支持 IPv4
	SupportsIPv4() bool
}

// SystemSource 基于操作系统的 Source
//
// 网卡枚举使用 anet，规避 Android 上 net.Interfaces 的权限问题；
// 默认网关由 jackpal/gateway 读取路由表获得。
type SystemSource struct{}

var _ Source = SystemSource{}

// Interfaces 实现 Source
func (SystemSource) Interfaces() ([]Interface, error) {
	ifaces, err := anet.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for i := range ifaces {
		iface := ifaces[i]
		addrs, err := anet.InterfaceAddrsByInterface(&iface)
		if err != nil {
			logger.Debug("获取网卡地址失败", "iface", iface.Name, "err", err)
			continue
		}

		snapshot := Interface{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		for _, addr := range addrs {
			if prefix, ok := prefixFromNetAddr(addr); ok {
				snapshot.Prefixes = append(snapshot.Prefixes, prefix)
			}
		}
		result = append(result, snapshot)
	}
	return result, nil
}

// Gateways 实现 Source
func (SystemSource) Gateways() ([]netip.Addr, error) {
	ip, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, fmt.Errorf("discover gateway: %w", err)
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return nil, fmt.Errorf("discover gateway: invalid address %v", ip)
	}
	return []netip.Addr{addr.Unmap()}, nil
}

// LookupHost 实现 Source
func (SystemSource) LookupHost(ctx context.Context) ([]netip.Addr, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve hostname %s: %w", host, err)
	}
	for i := range addrs {
		addrs[i] = addrs[i].Unmap()
	}
	return addrs, nil
}

// SupportsIPv4 实现 Source
//
// 与系统 socket 能力一致：能打开 IPv4 UDP socket 即视为支持。
func (SystemSource) SupportsIPv4() bool {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// prefixFromNetAddr 从 net.Addr 提取前缀
func prefixFromNetAddr(addr net.Addr) (netip.Prefix, bool) {
	switch v := addr.(type) {
	case *net.IPNet:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.Prefix{}, false
		}
		ip = ip.Unmap()
		ones, bits := v.Mask.Size()
		switch {
		case bits == 0:
			ones = ip.BitLen()
		case ip.Is4() && bits == 128:
			ones -= 96
		}
		if ones < 0 {
			ones = ip.BitLen()
		}
		return netip.PrefixFrom(ip, ones), true
	case *net.IPAddr:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.Prefix{}, false
		}
		ip = ip.Unmap()
		return netip.PrefixFrom(ip, ip.BitLen()), true
	default:
		return netip.Prefix{}, false
	}
}
