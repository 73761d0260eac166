// Package metrics 提供监控指标收集
//
// 基于 prometheus/client_golang 导出通道子系统的指标：
//   - remoting_channels_constructed_total{protocol}  通道构造次数
//   - remoting_channel_cache_hits_total{protocol}    注册表命中次数
//   - remoting_local_addresses                       本机可达地址数量
//   - remoting_message_bytes_total{protocol,direction} 通道收发字节
//
// # 快速开始
//
//	reporter := metrics.NewPrometheusReporter(prometheus.NewRegistry())
//	reporter.ChannelConstructed(types.ProtocolGenuineTCP)
//
// 未启用指标时使用 metrics.Nop()，所有调用为空操作。
//
// # 流量统计
//
// BandwidthCounter 同样实现 Reporter，只处理 MessageBytes，
// 按协议记录累计字节数与最近 60 秒的平均速率，供进程内查询。
// Module 通过 Tee 将两者组合为一个 Reporter。
package metrics
