package setup

import (
	"fmt"
	"time"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/pipeline"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// Config 协议配置
//
// 由 Option 逐项设置，每一项在设置时校验。
type Config struct {
	Versioning  types.Versioning
	Encryption  bool
	Algorithm   string
	OAEP        bool
	Secret      []byte
	Compression config.CompressionConfig

	// MaxAttempts 客户端最大连接尝试次数
	MaxAttempts int

	// BindAddress 绑定地址（服务端，以及 gudp 客户端）
	BindAddress string

	// Port 服务端监听端口
	Port int

	// Auth 服务端认证提供者
	Auth pkgif.AuthenticationProvider

	InvocationTimeout time.Duration
	ConnectTimeout    time.Duration

	Registry    pkgif.ChannelRegistry
	Addresses   pkgif.LocalAddresses
	Builder     *pipeline.Builder
	Constructor pkgif.ChannelConstructor
}

// defaultConfig 返回默认配置
func defaultConfig() Config {
	return Config{
		Versioning:        types.VersioningStrict,
		Algorithm:         config.DefaultAlgorithm,
		Compression:       config.DefaultCompressionConfig(),
		MaxAttempts:       1,
		InvocationTimeout: types.UnboundedTimeout,
		ConnectTimeout:    types.UnboundedTimeout,
		BindAddress:       config.DefaultBindAddress,
	}
}

// Option 协议配置选项
type Option func(*Config) error

func (cfg *Config) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return err
		}
	}
	return nil
}

// WithVersioning 设置版本策略
func WithVersioning(v types.Versioning) Option {
	return func(cfg *Config) error {
		if v != types.VersioningStrict && v != types.VersioningTolerant {
			return fmt.Errorf("%w: versioning %d", types.ErrInvalidArgument, v)
		}
		cfg.Versioning = v
		return nil
	}
}

// WithEncryption 开关加密
func WithEncryption(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.Encryption = enabled
		return nil
	}
}

// WithAlgorithm 设置加密算法（大小写不敏感）
func WithAlgorithm(algorithm string) Option {
	return func(cfg *Config) error {
		canonical, err := config.CanonicalAlgorithm(algorithm)
		if err != nil {
			return err
		}
		cfg.Algorithm = canonical
		return nil
	}
}

// WithOAEP 开关 OAEP 填充
func WithOAEP(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.OAEP = enabled
		return nil
	}
}

// WithSecret 设置加密预共享密钥，覆盖通道协商的会话密钥
func WithSecret(secret []byte) Option {
	return func(cfg *Config) error {
		cfg.Secret = append([]byte(nil), secret...)
		return nil
	}
}

// WithCompression 设置压缩
func WithCompression(c config.CompressionConfig) Option {
	return func(cfg *Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		cfg.Compression = c
		return nil
	}
}

// WithMaxAttempts 设置客户端最大连接尝试次数
func WithMaxAttempts(n int) Option {
	return func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: maxAttempts must be >= 1, got %d", types.ErrInvalidArgument, n)
		}
		cfg.MaxAttempts = n
		return nil
	}
}

// WithBindAddress 设置绑定地址
func WithBindAddress(addr string) Option {
	return func(cfg *Config) error {
		cfg.BindAddress = addr
		return nil
	}
}

// WithPort 设置服务端监听端口
func WithPort(port int) Option {
	return func(cfg *Config) error {
		if err := config.ValidatePort(port); err != nil {
			return err
		}
		cfg.Port = port
		return nil
	}
}

// WithAuthenticationProvider 设置服务端认证提供者
func WithAuthenticationProvider(p pkgif.AuthenticationProvider) Option {
	return func(cfg *Config) error {
		cfg.Auth = p
		return nil
	}
}

// WithTimeouts 设置转发给通道的调用/连接超时
func WithTimeouts(invocation, connect time.Duration) Option {
	return func(cfg *Config) error {
		if invocation <= 0 || connect <= 0 {
			return fmt.Errorf("%w: timeouts must be positive, got %s/%s", types.ErrInvalidArgument, invocation, connect)
		}
		cfg.InvocationTimeout = invocation
		cfg.ConnectTimeout = connect
		return nil
	}
}

// WithRegistry 设置通道注册表
func WithRegistry(r pkgif.ChannelRegistry) Option {
	return func(cfg *Config) error {
		cfg.Registry = r
		return nil
	}
}

// WithLocalAddresses 设置本机地址来源
func WithLocalAddresses(a pkgif.LocalAddresses) Option {
	return func(cfg *Config) error {
		cfg.Addresses = a
		return nil
	}
}

// WithBuilder 设置管道构建器
func WithBuilder(b *pipeline.Builder) Option {
	return func(cfg *Config) error {
		cfg.Builder = b
		return nil
	}
}

// WithConstructor 设置底层通道构造函数
func WithConstructor(c pkgif.ChannelConstructor) Option {
	return func(cfg *Config) error {
		cfg.Constructor = c
		return nil
	}
}

// FromConfig 从统一配置设置协议相关字段
//
// 协议名与 duplex 由工厂解释，这里不处理。
func FromConfig(u *config.Config) Option {
	return func(cfg *Config) error {
		if u == nil {
			return nil
		}
		opts := []Option{
			WithVersioning(u.Protocol.Versioning),
			WithEncryption(u.Protocol.Encryption),
			WithAlgorithm(u.Protocol.Algorithm),
			WithOAEP(u.Protocol.OAEP),
			WithCompression(u.Compression),
			WithMaxAttempts(u.Client.MaxAttempts),
			WithTimeouts(u.Timeouts.Invocation.Duration(), u.Timeouts.Connect.Duration()),
		}
		if len(u.Protocol.EncryptionSecret) > 0 {
			opts = append(opts, WithSecret(u.Protocol.EncryptionSecret))
		}
		return cfg.apply(opts...)
	}
}

// ClientFromConfig 额外设置客户端绑定地址
func ClientFromConfig(u *config.Config) Option {
	return func(cfg *Config) error {
		if u == nil {
			return nil
		}
		return cfg.apply(FromConfig(u), WithBindAddress(u.Client.BindAddress))
	}
}

// ServerFromConfig 额外设置服务端绑定地址与端口
func ServerFromConfig(u *config.Config) Option {
	return func(cfg *Config) error {
		if u == nil {
			return nil
		}
		return cfg.apply(FromConfig(u), WithBindAddress(u.Server.BindAddress), WithPort(u.Server.Port))
	}
}

// pipelineOptions 转换为管道构建参数
func (cfg *Config) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Versioning:  cfg.Versioning,
		TypeFilter:  types.TypeFilterFull,
		Encryption:  cfg.Encryption,
		Algorithm:   cfg.Algorithm,
		Secret:      cfg.Secret,
		Compression: cfg.Compression,
	}
}
