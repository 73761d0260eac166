package interfaces

import (
	"context"

	"github.com/dep2p/go-remoting/pkg/types"
)

// ProtocolSetup 绑定到某个线协议的配置对象
type ProtocolSetup interface {
	// Protocol 返回协议标识
	Protocol() types.ProtocolID

	// Name 返回通道名称（注册键）
	Name() string

	// Versioning 返回版本策略
	Versioning() types.Versioning

	// Encryption 报告是否启用加密
	Encryption() bool

	// Algorithm 返回加密算法
	Algorithm() string

	// IsURLValid 报告 url 是否属于该协议且符合通用语法
	IsURLValid(url string) bool

	// CreateChannel 获取（必要时构造并注册）通道
	CreateChannel(ctx context.Context) (*ChannelHandle, error)
}

// ClientProtocolSetup 客户端协议配置
type ClientProtocolSetup interface {
	ProtocolSetup

	// FormatURL 由 (服务器地址, 端口, 远端名称) 生成 URL
	FormatURL(parts ...any) (string, error)

	// MaxAttempts 返回最大连接尝试次数
	MaxAttempts() int
}

// ServerProtocolSetup 服务端协议配置
type ServerProtocolSetup interface {
	ProtocolSetup

	// TCPPort 返回监听端口
	TCPPort() int

	// SetTCPPort 设置监听端口，超出 [0,65535] 时返回错误且不修改
	SetTCPPort(port int) error

	// IPAddress 返回绑定地址
	IPAddress() string

	// SetIPAddress 设置绑定地址
	SetIPAddress(addr string)

	// AuthenticationProvider 返回认证提供者
	AuthenticationProvider() AuthenticationProvider

	// SetAuthenticationProvider 设置认证提供者
	SetAuthenticationProvider(p AuthenticationProvider)

	// DiscoverableURL 生成可供远端回调的 URL
	DiscoverableURL(remoteEndpointName string) string

	// IsDiscoverableURL 报告 url 是否指向本机真实可达地址
	IsDiscoverableURL(url string) bool
}
