package transport

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/metrics"
)

// Params Transport 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Reporter   metrics.Reporter `optional:"true"`
}

// Output Transport 导出
type Output struct {
	fx.Out

	Options      Options
	Constructors Constructors
}

// Module 是 transport 的 Fx 模块
var Module = fx.Module("transport",
	fx.Provide(ProvideConstructors),
)

// ProvideConstructors 提供内置协议的通道构造函数
func ProvideConstructors(p Params) Output {
	opts := OptionsFromConfig(p.UnifiedCfg, p.Reporter)
	logger.Debug("通道构造函数已就绪", "maxMessageSize", opts.MaxMessageSize, "dialTimeout", opts.DialTimeout)
	return Output{
		Options:      opts,
		Constructors: NewConstructors(opts),
	}
}
