// Package setup 实现客户端与服务端协议配置
//
// 一个协议配置绑定一种线协议（tcpex、tcp、gtcp、gudp），负责：
//   - 生成与校验该协议的 URL
//   - 解析通道构造参数表
//   - 通过管道构建器组装客户端/服务端管道
//   - 经通道注册表按名称获取或构造通道
//
// 注册表命中时直接返回已有通道，本次配置被忽略（先到者为准）。
package setup

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dep2p/go-remoting/internal/core/netaddr"
	"github.com/dep2p/go-remoting/internal/core/pipeline"
	"github.com/dep2p/go-remoting/internal/core/registry"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/setup")

// base 客户端与服务端共用部分
type base struct {
	proto protocol
	cfg   Config
}

func newBase(id types.ProtocolID, opts []Option) (base, error) {
	p, err := lookupProtocol(id)
	if err != nil {
		return base{}, err
	}
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return base{}, err
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.Addresses == nil {
		cfg.Addresses = netaddr.Default()
	}
	if cfg.Builder == nil {
		cfg.Builder = pipeline.NewBuilder(pipeline.StageFactories{})
	}
	return base{proto: p, cfg: cfg}, nil
}

// Protocol 返回协议标识
func (b *base) Protocol() types.ProtocolID {
	return b.proto.id
}

// Versioning 返回版本策略
func (b *base) Versioning() types.Versioning {
	return b.cfg.Versioning
}

// Encryption 报告是否启用加密
func (b *base) Encryption() bool {
	return b.cfg.Encryption
}

// Algorithm 返回加密算法
func (b *base) Algorithm() string {
	return b.cfg.Algorithm
}

// OAEP 报告是否启用 OAEP 填充
func (b *base) OAEP() bool {
	return b.cfg.OAEP
}

// Compression 返回压缩方法
func (b *base) Compression() string {
	return b.cfg.Compression.Method
}

// IsURLValid 报告 url 是否属于该协议且符合通用语法
func (b *base) IsURLValid(url string) bool {
	return hasScheme(url, b.proto.id) && IsWellFormedURL(url)
}

// createChannel 获取或构造通道
func (b *base) createChannel(ctx context.Context, side types.Side, name string, settings types.Settings) (*pkgif.ChannelHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	built := false
	h, err := b.cfg.Registry.GetOrCreate(name, b.proto.id, func() (*pkgif.ChannelHandle, error) {
		built = true
		return b.construct(side, name, settings)
	})
	if err != nil {
		return nil, err
	}
	if !built && !reflect.DeepEqual(h.Settings, settings) {
		logger.Debug("通道已存在，本次配置被忽略", "name", name, "registered", h.Settings, "requested", settings)
	}
	return h, nil
}

// construct 构造通道并设置运行期参数
func (b *base) construct(side types.Side, name string, settings types.Settings) (*pkgif.ChannelHandle, error) {
	if b.cfg.Constructor == nil {
		return nil, fmt.Errorf("%s channel %q: %w", b.proto.id, name, types.ErrNoChannelConstructor)
	}

	client, server, err := b.cfg.Builder.BuildPair(b.cfg.pipelineOptions())
	if err != nil {
		return nil, fmt.Errorf("%s channel %q: %w", b.proto.id, name, err)
	}

	ch, err := b.cfg.Constructor(settings.Clone(), client, server)
	if err != nil {
		return nil, fmt.Errorf("construct %s channel %q: %w", b.proto.id, name, err)
	}

	if pp, ok := ch.(pkgif.ParameterProvider); ok {
		pp.SetInvocationTimeout(b.cfg.InvocationTimeout)
		if b.proto.noSizeCheck(side) {
			pp.SetSizeChecking(false)
		}
	}

	logger.Info("通道已构造", "name", name, "protocol", b.proto.id, "side", side,
		"client", client.Names(), "server", server.Names())
	return &pkgif.ChannelHandle{
		Name:     name,
		Channel:  ch,
		Settings: settings,
		Protocol: b.proto.id,
	}, nil
}

// baseSettings 客户端与服务端共有的参数
func (b *base) baseSettings(side types.Side, name string) types.Settings {
	s := types.Settings{
		types.SettingName:            name,
		types.SettingTypeFilterLevel: types.TypeFilterFull.String(),
		types.SettingOAEP:            b.cfg.OAEP,
	}
	if b.proto.noSizeCheck(side) {
		s[types.SettingNoSizeChecking] = true
	}
	return s
}
