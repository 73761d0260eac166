package remoting

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/metrics"
	"github.com/dep2p/go-remoting/internal/core/netaddr"
	"github.com/dep2p/go-remoting/internal/core/pipeline"
	"github.com/dep2p/go-remoting/internal/core/registry"
	"github.com/dep2p/go-remoting/internal/core/transport"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
)

var fxLogger = log.Logger("remoting/fx")

// factoryParams Factory 依赖参数
type factoryParams struct {
	fx.In

	Config       *config.Config
	Registry     pkgif.ChannelRegistry
	Addresses    pkgif.LocalAddresses
	Builder      *pipeline.Builder
	Constructors transport.Constructors
}

// Module 组装通道子系统
//
// 加载顺序（按依赖）：
//  1. Metrics → 地址发现 → 注册表
//  2. 管道构建器 → 通道构造函数
//  3. Factory
//
// 注册表在应用停止时关闭所有通道。
func Module(cfg *config.Config) fx.Option {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return fx.Module("remoting",
		fx.Supply(cfg),
		metrics.Module,
		netaddr.Module,
		registry.Module,
		pipeline.Module,
		transport.Module,
		fx.Provide(func(p factoryParams) *Factory {
			return newFactory(p.Config, p.Registry, p.Addresses, p.Builder, p.Constructors)
		}),
	)
}

// App 运行中的 fx 应用
type App struct {
	app       *fx.App
	factory   *Factory
	bandwidth *metrics.BandwidthCounter
}

// NewApp 构建并启动 fx 应用
//
// extra 为用户自定义 Fx 选项（如替换 prometheus.Registerer 或 netaddr.Source）。
func NewApp(ctx context.Context, cfg *config.Config, extra ...fx.Option) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	a := &App{}
	modules := []fx.Option{
		Module(cfg),
		fx.Populate(&a.factory, &a.bandwidth),
	}
	modules = append(modules, extra...)
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	a.app = fx.New(modules...)
	if err := a.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	if err := a.app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start fx app: %w", err)
	}
	fxLogger.Debug("应用已启动", "protocol", cfg.Protocol.Name, "duplex", cfg.Protocol.Duplex)
	return a, nil
}

// Factory 返回应用中的 Factory
func (a *App) Factory() *Factory {
	return a.factory
}

// Bandwidth 返回应用中各协议的流量统计
func (a *App) Bandwidth() *metrics.BandwidthCounter {
	return a.bandwidth
}

// Stop 停止应用并关闭所有通道
func (a *App) Stop(ctx context.Context) error {
	err := a.app.Stop(ctx)
	fxLogger.Debug("应用已停止", "err", err)
	return err
}
