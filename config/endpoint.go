package config

import (
	"fmt"

	"github.com/dep2p/go-remoting/pkg/types"
)

// MaxPort 最大端口号
const MaxPort = 65535

// DefaultBindAddress 默认绑定地址
const DefaultBindAddress = "0.0.0.0"

// ClientConfig 客户端配置
type ClientConfig struct {
	// MaxAttempts 最大连接尝试次数
	MaxAttempts int `json:"max_attempts"`

	// BindAddress gudp 客户端绑定地址
	BindAddress string `json:"bind_address,omitempty"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxAttempts: 1,
		BindAddress: DefaultBindAddress,
	}
}

// Validate 验证客户端配置
func (c ClientConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: client.max_attempts must be >= 1, got %d", types.ErrInvalidArgument, c.MaxAttempts)
	}
	return nil
}

// ServerConfig 服务端配置
type ServerConfig struct {
	// BindAddress 绑定地址
	BindAddress string `json:"bind_address"`

	// Port 监听端口，0 表示临时端口
	Port int `json:"port"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		BindAddress: DefaultBindAddress,
		Port:        0,
	}
}

// Validate 验证服务端配置
func (c ServerConfig) Validate() error {
	return ValidatePort(c.Port)
}

// ValidatePort 检查端口在 [0,65535] 内
func ValidatePort(port int) error {
	if port < 0 || port > MaxPort {
		return fmt.Errorf("%w: tcpPort must be in [0,%d], got %d", types.ErrPortOutOfRange, MaxPort, port)
	}
	return nil
}
