package setup

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// Server 服务端协议配置
type Server struct {
	base
	id string
}

var _ pkgif.ServerProtocolSetup = (*Server)(nil)

// NewServer 创建服务端协议配置
func NewServer(id types.ProtocolID, opts ...Option) (*Server, error) {
	b, err := newBase(id, opts)
	if err != nil {
		return nil, err
	}
	return &Server{base: b, id: uuid.NewString()}, nil
}

// Name 返回通道名称
//
// 形如 <scheme>-server@<bind>:<port>；端口为 0 时追加实例 UUID，
// 两个临时端口的服务端不会共用同一通道。
func (s *Server) Name() string {
	name := s.proto.id.String() + "-server@" + net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.Port))
	if s.cfg.Port == 0 {
		name += "-" + s.id
	}
	return name
}

// TCPPort 返回监听端口
func (s *Server) TCPPort() int {
	return s.cfg.Port
}

// SetTCPPort 设置监听端口
//
// 超出 [0,65535] 时返回 ErrPortOutOfRange，原值保持不变。
func (s *Server) SetTCPPort(port int) error {
	if err := config.ValidatePort(port); err != nil {
		return err
	}
	s.cfg.Port = port
	return nil
}

// IPAddress 返回绑定地址
func (s *Server) IPAddress() string {
	return s.cfg.BindAddress
}

// SetIPAddress 设置绑定地址
func (s *Server) SetIPAddress(addr string) {
	s.cfg.BindAddress = addr
}

// AuthenticationProvider 返回认证提供者
func (s *Server) AuthenticationProvider() pkgif.AuthenticationProvider {
	return s.cfg.Auth
}

// SetAuthenticationProvider 设置认证提供者
func (s *Server) SetAuthenticationProvider(p pkgif.AuthenticationProvider) {
	s.cfg.Auth = p
}

// CreateChannel 获取（必要时构造并注册）服务端通道
func (s *Server) CreateChannel(ctx context.Context) (*pkgif.ChannelHandle, error) {
	return s.createChannel(ctx, types.SideServer, s.Name(), s.settings())
}

// settings 解析服务端参数表
func (s *Server) settings() types.Settings {
	st := s.baseSettings(types.SideServer, s.Name())
	st[types.SettingPort] = s.cfg.Port
	st[types.SettingInvocationTimeout] = s.cfg.InvocationTimeout
	st[types.SettingConnectTimeout] = s.cfg.ConnectTimeout
	if strings.TrimSpace(s.cfg.BindAddress) != "" {
		st[s.proto.bindKey] = s.proto.bindValue(s.cfg.BindAddress)
	}
	return st
}

// DiscoverableURL 生成可供远端回调的 URL
//
// 主机取本机地址集合中第一个非回环地址，没有时取回环地址。
// 端口为 0 时 URL 不可回调，监听后应以 SetTCPPort 写回实际端口。
func (s *Server) DiscoverableURL(remoteEndpointName string) string {
	return formatURL(s.proto.id, s.cfg.Addresses.Best().String(), s.cfg.Port, remoteEndpointName)
}

// IsDiscoverableURL 报告 url 是否指向本机真实可达地址
//
// 基于通道标识而非网络地址的 URL 对远端不可达，返回 false；
// 端口 0 不是可连接的端口，同样返回 false。
func (s *Server) IsDiscoverableURL(raw string) bool {
	if !s.IsURLValid(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if port, err := strconv.Atoi(u.Port()); err != nil || port == 0 {
		return false
	}
	return s.cfg.Addresses.Contains(u.Hostname())
}
