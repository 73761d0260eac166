package pipeline

import (
	"fmt"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// Options 构建管道所需的协议配置
type Options struct {
	// Versioning 版本策略
	Versioning types.Versioning

	// TypeFilter 反序列化过滤级别
	TypeFilter types.TypeFilterLevel

	// Encryption 是否加入加密阶段
	Encryption bool

	// Algorithm 加密算法
	Algorithm string

	// Secret 预共享密钥，为空时加密阶段使用通道协商的会话密钥
	Secret []byte

	// Compression 压缩配置，Method 为 none 时不加入压缩阶段
	Compression config.CompressionConfig
}

// StageFactory 根据配置创建一个阶段
type StageFactory func(opts Options) (pkgif.Stage, error)

// StageFactories 各类阶段的创建函数
//
// 未设置的字段使用 DefaultStageFactories 中的对应函数。
type StageFactories struct {
	Serialization StageFactory
	Encryption    StageFactory
	Compression   StageFactory
	ClientAddress StageFactory
}

// merge 用 defaults 填充未设置的字段
func (f StageFactories) merge(defaults StageFactories) StageFactories {
	if f.Serialization == nil {
		f.Serialization = defaults.Serialization
	}
	if f.Encryption == nil {
		f.Encryption = defaults.Encryption
	}
	if f.Compression == nil {
		f.Compression = defaults.Compression
	}
	if f.ClientAddress == nil {
		f.ClientAddress = defaults.ClientAddress
	}
	return f
}

// Builder 管道构建器
type Builder struct {
	factories StageFactories
}

// NewBuilder 创建管道构建器
func NewBuilder(factories StageFactories) *Builder {
	return &Builder{factories: factories.merge(DefaultStageFactories())}
}

// Build 为指定侧构建管道
func (b *Builder) Build(side types.Side, opts Options) (*Pipeline, error) {
	stages := make([]pkgif.Stage, 0, 4)

	add := func(kind string, f StageFactory) error {
		s, err := f(opts)
		if err != nil {
			return fmt.Errorf("build %s %s stage: %w", side, kind, err)
		}
		stages = append(stages, s)
		return nil
	}

	if err := add("serialization", b.factories.Serialization); err != nil {
		return nil, err
	}
	if opts.Encryption {
		if err := add("encryption", b.factories.Encryption); err != nil {
			return nil, err
		}
	}
	if opts.Compression.Enabled() {
		if err := add("compression", b.factories.Compression); err != nil {
			return nil, err
		}
	}
	if side == types.SideServer {
		if err := add("client address", b.factories.ClientAddress); err != nil {
			return nil, err
		}
	}

	p := New(side, stages...)
	logger.Debug("管道已构建", "side", side, "stages", p.Names())
	return p, nil
}

// BuildPair 构建客户端侧与服务端侧管道
func (b *Builder) BuildPair(opts Options) (client, server *Pipeline, err error) {
	client, err = b.Build(types.SideClient, opts)
	if err != nil {
		return nil, nil, err
	}
	server, err = b.Build(types.SideServer, opts)
	if err != nil {
		return nil, nil, err
	}
	return client, server, nil
}
