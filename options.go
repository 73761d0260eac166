package remoting

import (
	"fmt"
	"time"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/setup"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Factory 选项
// ════════════════════════════════════════════════════════════════════════════

// Option Factory 配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置，为 nil 时使用各组件默认值
	config *config.Config

	registry     pkgif.ChannelRegistry
	addresses    pkgif.LocalAddresses
	constructors map[types.ProtocolID]pkgif.ChannelConstructor
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		constructors: make(map[types.ProtocolID]pkgif.ChannelConstructor),
	}
}

// WithConfig 使用统一配置
//
// 配置在设置时校验，协议配置继承其中的版本策略、加密、压缩与超时。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", types.ErrInvalidArgument)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithRegistry 使用独立的通道注册表
func WithRegistry(r pkgif.ChannelRegistry) Option {
	return func(o *options) error {
		if r == nil {
			return fmt.Errorf("%w: nil registry", types.ErrInvalidArgument)
		}
		o.registry = r
		return nil
	}
}

// WithLocalAddresses 使用指定的本机地址来源
func WithLocalAddresses(a pkgif.LocalAddresses) Option {
	return func(o *options) error {
		if a == nil {
			return fmt.Errorf("%w: nil local addresses", types.ErrInvalidArgument)
		}
		o.addresses = a
		return nil
	}
}

// WithConstructor 替换某个协议的通道构造函数
func WithConstructor(protocol types.ProtocolID, ctor pkgif.ChannelConstructor) Option {
	return func(o *options) error {
		if ctor == nil {
			return fmt.Errorf("%w: nil constructor for %s", types.ErrInvalidArgument, protocol)
		}
		o.constructors[protocol] = ctor
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              协议配置选项
// ════════════════════════════════════════════════════════════════════════════

// SetupOption 协议配置选项，每一项在设置时校验
type SetupOption = setup.Option

// Versioning 版本策略
type Versioning = types.Versioning

// 版本策略
const (
	VersioningStrict   = types.VersioningStrict
	VersioningTolerant = types.VersioningTolerant
)

// WithVersioning 设置版本策略
func WithVersioning(v Versioning) SetupOption {
	return setup.WithVersioning(v)
}

// WithAlgorithm 设置加密算法（大小写不敏感）
func WithAlgorithm(algorithm string) SetupOption {
	return setup.WithAlgorithm(algorithm)
}

// WithSecret 设置加密预共享密钥，覆盖通道协商的会话密钥
func WithSecret(secret []byte) SetupOption {
	return setup.WithSecret(secret)
}

// WithOAEP 开关 OAEP 填充
func WithOAEP(enabled bool) SetupOption {
	return setup.WithOAEP(enabled)
}

// WithCompression 设置压缩方法与阈值
func WithCompression(method string, threshold int) SetupOption {
	return setup.WithCompression(config.CompressionConfig{Method: method, Threshold: threshold})
}

// WithMaxAttempts 设置客户端最大连接尝试次数
func WithMaxAttempts(n int) SetupOption {
	return setup.WithMaxAttempts(n)
}

// WithBindAddress 设置绑定地址
func WithBindAddress(addr string) SetupOption {
	return setup.WithBindAddress(addr)
}

// WithTimeouts 设置转发给通道的调用/连接超时
func WithTimeouts(invocation, connect time.Duration) SetupOption {
	return setup.WithTimeouts(invocation, connect)
}
