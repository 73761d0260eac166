// Package transport 提供协议配置默认使用的通道实现
//
// 两种通道：
//   - StreamChannel：tcpex、tcp、gtcp，基于 TCP，帧以 varint 长度前缀分隔
//   - DatagramChannel：gudp，基于 UDP，一个数据报承载一帧
//
// 通道由构造函数按参数表创建，创建后不做任何 I/O；
// 服务端调用 Start 开始监听，客户端通过 Call 发起请求。
// 请求经客户端管道出站、服务端管道入站，响应反向经过两条管道。
//
// # 帧格式
//
//	frame  := uvarint(头数量) { uvarint(len) key uvarint(len) value }* body
//	stream := { uvarint(len(frame)) frame }*
//
// # 会话密钥
//
// 客户端管道开启加密而没有预共享密钥时，Call 先发送只带 __KeyExchange 头的
// 空帧，服务端以通道长期公钥应答；随后的请求再次携带客户端临时公钥，
// 服务端据此算出同一会话密钥，无需保存连接状态。
//
// # 运行期参数
//
// 两种通道都实现 interfaces.ParameterProvider：
//   - 调用超时作为每次 Call 的截止时间
//   - 大小检查开启时，超过 MaxMessageSize 的帧被拒绝
package transport
