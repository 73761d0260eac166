// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载与保存。
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Protocol.Name = "gtcp"
//	cfg.Protocol.Encryption = true
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是 go-remoting 的完整配置结构
//
// 配置按照功能模块组织：
//   - Protocol: 协议选择、版本策略、加密
//   - Client: 客户端连接参数
//   - Server: 服务端绑定参数
//   - Compression: 压缩阶段
//   - Timeouts: 转发给通道的超时
//   - Transport: 参考通道实现参数
//   - Discovery: 本机地址发现
//   - Metrics: 指标
type Config struct {
	// Protocol 协议配置
	Protocol ProtocolConfig `json:"protocol"`

	// Client 客户端配置
	Client ClientConfig `json:"client"`

	// Server 服务端配置
	Server ServerConfig `json:"server"`

	// Compression 压缩配置
	Compression CompressionConfig `json:"compression"`

	// Timeouts 超时配置
	Timeouts TimeoutConfig `json:"timeouts"`

	// Transport 参考通道配置
	Transport TransportConfig `json:"transport"`

	// Discovery 地址发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Protocol:    DefaultProtocolConfig(),
		Client:      DefaultClientConfig(),
		Server:      DefaultServerConfig(),
		Compression: DefaultCompressionConfig(),
		Timeouts:    DefaultTimeoutConfig(),
		Transport:   DefaultTransportConfig(),
		Discovery:   DefaultDiscoveryConfig(),
		Metrics:     DefaultMetricsConfig(),
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	if err := c.Protocol.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Compression.Validate(); err != nil {
		return err
	}
	if err := c.Timeouts.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	return c.Discovery.Validate()
}

// Clone 返回深拷贝
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Protocol.EncryptionSecret != nil {
		clone.Protocol.EncryptionSecret = append([]byte(nil), c.Protocol.EncryptionSecret...)
	}
	return &clone
}
