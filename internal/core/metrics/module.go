package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Output Metrics 模块输出
type Output struct {
	fx.Out

	Reporter  Reporter
	Bandwidth *BandwidthCounter
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(ProvideMetrics),
)

// ProvideMetrics 提供 Reporter 与流量计数器
//
// 流量计数始终启用；prometheus 导出受 Metrics.Enabled 控制。
func ProvideMetrics(p Params) Output {
	bw := NewBandwidthCounter()
	return Output{
		Reporter:  Tee(NewReporterFromParams(p), bw),
		Bandwidth: bw,
	}
}

// NewReporterFromParams 从参数创建 prometheus Reporter
//
// 指标关闭时返回 Nop()。
func NewReporterFromParams(p Params) Reporter {
	if p.UnifiedCfg != nil && !p.UnifiedCfg.Metrics.Enabled {
		return Nop()
	}
	return NewPrometheusReporter(p.Registerer)
}
