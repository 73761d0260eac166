package pipeline

import "go.uber.org/fx"

// Params Builder 依赖参数
type Params struct {
	fx.In

	Factories *StageFactories `optional:"true"`
}

// Module 是 pipeline 的 Fx 模块
var Module = fx.Module("pipeline",
	fx.Provide(ProvideBuilder),
)

// ProvideBuilder 提供管道构建器
//
// 未注入 StageFactories 时使用默认阶段。
func ProvideBuilder(p Params) *Builder {
	if p.Factories == nil {
		return NewBuilder(StageFactories{})
	}
	return NewBuilder(*p.Factories)
}
