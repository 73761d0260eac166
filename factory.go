package remoting

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/netaddr"
	"github.com/dep2p/go-remoting/internal/core/pipeline"
	"github.com/dep2p/go-remoting/internal/core/registry"
	"github.com/dep2p/go-remoting/internal/core/setup"
	"github.com/dep2p/go-remoting/internal/core/transport"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("remoting")

// ════════════════════════════════════════════════════════════════════════════
//                              协议名称解析
// ════════════════════════════════════════════════════════════════════════════

// aliases 协议别名（小写）
//
// 空名称、tcp、tcpchannel 不在表中，由 duplex 决定。
var aliases = map[string]types.ProtocolID{
	"tcpex":             types.ProtocolTCPDuplex,
	"tcpexchannel":      types.ProtocolTCPDuplex,
	"duplex":            types.ProtocolTCPDuplex,
	"tcpduplex":         types.ProtocolTCPDuplex,
	"duplexchannel":     types.ProtocolTCPDuplex,
	"gtcp":              types.ProtocolGenuineTCP,
	"genuine":           types.ProtocolGenuineTCP,
	"genuinechannel":    types.ProtocolGenuineTCP,
	"genuinetcp":        types.ProtocolGenuineTCP,
	"genuinetcpchannel": types.ProtocolGenuineTCP,
	"gudp":              types.ProtocolGenuineUDP,
	"genuineudp":        types.ProtocolGenuineUDP,
	"genuineudpchannel": types.ProtocolGenuineUDP,
}

// ResolveProtocol 将协议名称解析为协议标识
//
// 名称大小写不敏感。空名称、tcp、tcpchannel 在 duplex 为 true 时解析为 tcpex，否则为 tcp。
func ResolveProtocol(name string, duplex bool) (types.ProtocolID, error) {
	switch token := strings.ToLower(name); token {
	case "", "tcp", "tcpchannel":
		if duplex {
			return types.ProtocolTCPDuplex, nil
		}
		return types.ProtocolTCP, nil
	default:
		if id, ok := aliases[token]; ok {
			return id, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProtocol, name)
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Factory
// ════════════════════════════════════════════════════════════════════════════

// Factory 按协议名称创建协议配置
//
// 由同一个 Factory 创建的配置共享注册表、地址发现、管道构建器与通道构造函数。
type Factory struct {
	config       *config.Config
	registry     pkgif.ChannelRegistry
	addresses    pkgif.LocalAddresses
	builder      *pipeline.Builder
	constructors transport.Constructors
}

// NewFactory 创建 Factory
//
// 未指定的依赖使用进程级默认实例：registry.Default()、netaddr.Default()，
// 以及按统一配置创建的参考通道构造函数。
func NewFactory(opts ...Option) (*Factory, error) {
	o := newOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	ctors := transport.NewConstructors(transport.OptionsFromConfig(o.config, nil))
	for id, ctor := range o.constructors {
		ctors[id] = ctor
	}

	f := &Factory{
		config:       o.config,
		registry:     o.registry,
		addresses:    o.addresses,
		builder:      pipeline.NewBuilder(pipeline.StageFactories{}),
		constructors: ctors,
	}
	if f.registry == nil {
		f.registry = registry.Default()
	}
	if f.addresses == nil {
		f.addresses = netaddr.Default()
	}
	return f, nil
}

// newFactory 由已组装的组件创建 Factory（fx 使用）
func newFactory(cfg *config.Config, reg pkgif.ChannelRegistry, addrs pkgif.LocalAddresses, builder *pipeline.Builder, ctors transport.Constructors) *Factory {
	return &Factory{
		config:       cfg,
		registry:     reg,
		addresses:    addrs,
		builder:      builder,
		constructors: ctors,
	}
}

// Registry 返回通道注册表
func (f *Factory) Registry() pkgif.ChannelRegistry {
	return f.registry
}

// LocalAddresses 返回本机地址来源
func (f *Factory) LocalAddresses() pkgif.LocalAddresses {
	return f.addresses
}

// setupOptions 组装协议配置选项
//
// 顺序：统一配置 → 共享依赖 → 调用参数 → 调用方选项，后者覆盖前者。
func (f *Factory) setupOptions(id types.ProtocolID, base setup.Option, encryption bool, extra []SetupOption) []setup.Option {
	opts := make([]setup.Option, 0, len(extra)+6)
	if f.config != nil {
		opts = append(opts, base)
	}
	opts = append(opts,
		setup.WithRegistry(f.registry),
		setup.WithLocalAddresses(f.addresses),
		setup.WithBuilder(f.builder),
	)
	if ctor, err := f.constructors.For(id); err == nil {
		opts = append(opts, setup.WithConstructor(ctor))
	} else {
		logger.Debug("协议没有通道构造函数", "protocol", id, "err", err)
	}
	opts = append(opts, setup.WithEncryption(encryption))
	return append(opts, extra...)
}

// ClientFactory 返回按名称选择的客户端配置构造函数
//
// 名称在调用时即解析，未知名称立即返回错误；
// 返回的函数每次调用都创建一个名称唯一的新配置。
func (f *Factory) ClientFactory(name string, encryption, duplex bool, opts ...SetupOption) (func() (pkgif.ClientProtocolSetup, error), error) {
	id, err := ResolveProtocol(name, duplex)
	if err != nil {
		return nil, fmt.Errorf("client %w", err)
	}
	setupOpts := f.setupOptions(id, setup.ClientFromConfig(f.config), encryption, opts)

	return func() (pkgif.ClientProtocolSetup, error) {
		c, err := setup.NewClient(id, setupOpts...)
		if err != nil {
			return nil, err
		}
		logger.Debug("创建客户端配置", "protocol", id, "name", c.Name())
		return c, nil
	}, nil
}

// Client 按名称创建客户端配置
func (f *Factory) Client(name string, encryption, duplex bool, opts ...SetupOption) (pkgif.ClientProtocolSetup, error) {
	newClient, err := f.ClientFactory(name, encryption, duplex, opts...)
	if err != nil {
		return nil, err
	}
	return newClient()
}

// Server 按名称创建服务端配置
func (f *Factory) Server(name string, port int, auth pkgif.AuthenticationProvider, encryption, duplex bool, opts ...SetupOption) (pkgif.ServerProtocolSetup, error) {
	id, err := ResolveProtocol(name, duplex)
	if err != nil {
		return nil, fmt.Errorf("server %w", err)
	}

	setupOpts := f.setupOptions(id, setup.ServerFromConfig(f.config), encryption, nil)
	setupOpts = append(setupOpts, setup.WithPort(port), setup.WithAuthenticationProvider(auth))
	setupOpts = append(setupOpts, opts...)

	s, err := setup.NewServer(id, setupOpts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("创建服务端配置", "protocol", id, "name", s.Name())
	return s, nil
}

// ConfiguredClient 按统一配置中的协议名称、加密与 duplex 创建客户端配置
func (f *Factory) ConfiguredClient(opts ...SetupOption) (pkgif.ClientProtocolSetup, error) {
	p := f.protocolConfig()
	return f.Client(p.Name, p.Encryption, p.Duplex, opts...)
}

// ConfiguredServer 按统一配置中的协议名称、端口、加密与 duplex 创建服务端配置
func (f *Factory) ConfiguredServer(auth pkgif.AuthenticationProvider, opts ...SetupOption) (pkgif.ServerProtocolSetup, error) {
	p := f.protocolConfig()
	port := config.DefaultServerConfig().Port
	if f.config != nil {
		port = f.config.Server.Port
	}
	return f.Server(p.Name, port, auth, p.Encryption, p.Duplex, opts...)
}

func (f *Factory) protocolConfig() config.ProtocolConfig {
	if f.config == nil {
		return config.DefaultProtocolConfig()
	}
	return f.config.Protocol
}

// ════════════════════════════════════════════════════════════════════════════
//                              默认 Factory
// ════════════════════════════════════════════════════════════════════════════

var defaultFactory = sync.OnceValue(func() *Factory {
	f, err := NewFactory()
	if err != nil {
		// 无选项时不会失败
		panic(err)
	}
	return f
})

// Default 返回进程级默认 Factory
func Default() *Factory {
	return defaultFactory()
}

// ClientFactory 使用默认 Factory，见 Factory.ClientFactory
func ClientFactory(name string, encryption, duplex bool, opts ...SetupOption) (func() (pkgif.ClientProtocolSetup, error), error) {
	return Default().ClientFactory(name, encryption, duplex, opts...)
}

// Client 使用默认 Factory，见 Factory.Client
func Client(name string, encryption, duplex bool, opts ...SetupOption) (pkgif.ClientProtocolSetup, error) {
	return Default().Client(name, encryption, duplex, opts...)
}

// Server 使用默认 Factory，见 Factory.Server
func Server(name string, port int, auth pkgif.AuthenticationProvider, encryption, duplex bool, opts ...SetupOption) (pkgif.ServerProtocolSetup, error) {
	return Default().Server(name, port, auth, encryption, duplex, opts...)
}
