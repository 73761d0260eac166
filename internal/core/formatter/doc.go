// Package formatter 实现序列化阶段
//
// 负载为 proto.Message，线上格式为 anypb.Any：类型 URL 与消息字节一起传输，
// 接收端按类型 URL 从解析器中还原消息。
//
// 版本策略：
//   - Strict：类型全名必须能精确解析；消息中出现未知字段视为类型不一致
//   - Tolerant：丢弃未知字段；类型全名解析失败时按短名匹配（容忍包名/版本漂移）
//
// 过滤级别：
//   - Full：解析器中的任意类型
//   - Low：仅允许显式列入白名单的类型
package formatter
