package setup

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// Client 客户端协议配置
type Client struct {
	base
	name string
}

var _ pkgif.ClientProtocolSetup = (*Client)(nil)

// NewClient 创建客户端协议配置
//
// 通道名为 <客户端类型>-<UUID>，每个配置实例唯一。
func NewClient(id types.ProtocolID, opts ...Option) (*Client, error) {
	b, err := newBase(id, opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: b,
		name: b.proto.clientType + uuid.NewString(),
	}, nil
}

// Name 返回通道名称，形如 <配置类型名><UUID>
func (c *Client) Name() string {
	return c.name
}

// MaxAttempts 返回最大连接尝试次数
func (c *Client) MaxAttempts() int {
	return c.cfg.MaxAttempts
}

// IPAddress 返回绑定地址（仅 gudp 使用）
func (c *Client) IPAddress() string {
	return c.cfg.BindAddress
}

// SetIPAddress 设置绑定地址（仅 gudp 使用）
func (c *Client) SetIPAddress(addr string) {
	c.cfg.BindAddress = addr
}

// FormatURL 由 (服务器地址, 端口, 远端名称) 生成 URL
func (c *Client) FormatURL(parts ...any) (string, error) {
	host, port, name, err := urlParts(c.proto.clientType, parts)
	if err != nil {
		return "", err
	}
	return formatURL(c.proto.id, host, port, name), nil
}

// URL 是 FormatURL 的类型化形式，不做端口范围校验
func (c *Client) URL(host string, port int, name string) string {
	return formatURL(c.proto.id, host, port, name)
}

// CreateChannel 获取（必要时构造并注册）客户端通道
func (c *Client) CreateChannel(ctx context.Context) (*pkgif.ChannelHandle, error) {
	return c.createChannel(ctx, types.SideClient, c.name, c.settings())
}

// settings 解析客户端参数表
func (c *Client) settings() types.Settings {
	s := c.baseSettings(types.SideClient, c.name)
	s[types.SettingPort] = 0
	s[types.SettingConnectionAttempts] = c.cfg.MaxAttempts
	if c.proto.schemeBind && strings.TrimSpace(c.cfg.BindAddress) != "" {
		s[c.proto.bindKey] = c.proto.bindValue(c.cfg.BindAddress)
	}
	return s
}
