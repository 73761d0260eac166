package netaddr

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
)

// Params Discovery 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Reporter   metrics.Reporter `optional:"true"`
	Source     Source           `optional:"true"`
}

// Output Discovery 导出
type Output struct {
	fx.Out

	Discovery      *Discovery
	LocalAddresses pkgif.LocalAddresses
}

// Module 是 netaddr 的 Fx 模块
var Module = fx.Module("netaddr",
	fx.Provide(ProvideDiscovery),
)

// ProvideDiscovery 从参数创建 Discovery
//
// 只创建不枚举，首次查询时才访问网卡。
func ProvideDiscovery(p Params) Output {
	opts := []Option{WithReporter(p.Reporter), WithSource(p.Source)}
	if p.UnifiedCfg != nil {
		opts = append(opts, WithLookupTimeout(p.UnifiedCfg.Discovery.LookupTimeout.Duration()))
	}
	d := New(opts...)
	return Output{Discovery: d, LocalAddresses: d}
}
