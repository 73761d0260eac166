package config

import (
	"fmt"
	"time"

	"github.com/dep2p/go-remoting/pkg/types"
)

// DefaultMaxMessageSize 开启大小检查时的单帧上限
const DefaultMaxMessageSize = 16 << 20

// TransportConfig 参考通道实现配置
type TransportConfig struct {
	// MaxMessageSize 单帧上限（字节），仅在大小检查开启时生效
	MaxMessageSize int `json:"max_message_size"`

	// DialTimeout 单次拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// DialBackoff 拨号重试的初始退避
	DialBackoff Duration `json:"dial_backoff"`
}

// DefaultTransportConfig 返回默认配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		DialTimeout:    Duration(10 * time.Second),
		DialBackoff:    Duration(200 * time.Millisecond),
	}
}

// Validate 验证配置
func (c TransportConfig) Validate() error {
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: transport.max_message_size must be > 0", types.ErrInvalidArgument)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: transport.dial_timeout must be > 0", types.ErrInvalidArgument)
	}
	if c.DialBackoff < 0 {
		return fmt.Errorf("%w: transport.dial_backoff must be >= 0", types.ErrInvalidArgument)
	}
	return nil
}

// DiscoveryConfig 本机地址发现配置
type DiscoveryConfig struct {
	// LookupTimeout 主机名解析（降级路径）超时
	LookupTimeout Duration `json:"lookup_timeout"`
}

// DefaultDiscoveryConfig 返回默认配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		LookupTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证配置
func (c DiscoveryConfig) Validate() error {
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("%w: discovery.lookup_timeout must be > 0", types.ErrInvalidArgument)
	}
	return nil
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否导出 prometheus 指标
	Enabled bool `json:"enabled"`
}

// DefaultMetricsConfig 返回默认配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true}
}
