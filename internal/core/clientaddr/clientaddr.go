// Package clientaddr 实现服务端的调用方地址捕获阶段
//
// 该阶段总是服务端管道的最后一个阶段：入站时最先执行，
// 把通道记录的对端 IP 写入 __ClientAddress 头，覆盖对端自带的同名头。
package clientaddr

import (
	"context"
	"net"
	"net/netip"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// StageName 阶段名称
const StageName = "clientaddr"

// Stage 调用方地址捕获阶段
type Stage struct{}

var _ pkgif.Stage = Stage{}

// New 创建阶段
func New() Stage {
	return Stage{}
}

// Name 实现 pkgif.Stage
func (Stage) Name() string {
	return StageName
}

// Outbound 出站不携带调用方地址
func (Stage) Outbound(_ context.Context, msg *types.Message) error {
	delete(msg.Headers, types.HeaderClientAddress)
	return nil
}

// Inbound 记录对端地址
func (Stage) Inbound(_ context.Context, msg *types.Message) error {
	if msg.Peer == nil {
		delete(msg.Headers, types.HeaderClientAddress)
		return nil
	}
	msg.SetHeader(types.HeaderClientAddress, hostOf(msg.Peer))
	return nil
}

// FromMessage 返回入站消息的调用方地址
func FromMessage(msg *types.Message) (netip.Addr, bool) {
	if msg == nil {
		return netip.Addr{}, false
	}
	s := msg.Header(types.HeaderClientAddress)
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

func hostOf(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.AddrPort().Addr().Unmap().String()
	case *net.UDPAddr:
		return a.AddrPort().Addr().Unmap().String()
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
