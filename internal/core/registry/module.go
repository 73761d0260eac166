package registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
)

// Params Registry 依赖参数
type Params struct {
	fx.In

	Reporter metrics.Reporter `optional:"true"`
}

// Output Registry 导出
type Output struct {
	fx.Out

	Registry        *Registry
	ChannelRegistry pkgif.ChannelRegistry
}

// Module 是 registry 的 Fx 模块
var Module = fx.Module("registry",
	fx.Provide(ProvideRegistry),
	fx.Invoke(registerLifecycle),
)

// ProvideRegistry 提供注册表
func ProvideRegistry(p Params) Output {
	r := New(p.Reporter)
	return Output{Registry: r, ChannelRegistry: r}
}

// registerLifecycle 停止时关闭所有通道
func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return r.Close()
		},
	})
}
