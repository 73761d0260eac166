package interfaces

import "net/netip"

// LocalAddresses 本机可达地址集合的查询接口
type LocalAddresses interface {
	// Addresses 返回缓存的地址列表（非回环优先，回环在最后）
	Addresses() []netip.Addr

	// Contains 报告 host 是否为本机地址
	Contains(host string) bool

	// Best 返回最适合对外公布的地址
	Best() netip.Addr
}
