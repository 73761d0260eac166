package types

import "net"

// 保留消息头
const (
	// HeaderClientAddress 服务端记录的调用方网络地址
	HeaderClientAddress = "__ClientAddress"

	// HeaderCompression 消息体使用的压缩方法
	HeaderCompression = "__Compression"

	// HeaderEncryption 消息体使用的加密算法
	HeaderEncryption = "__Encryption"

	// HeaderKeyExchange 发送方的 X25519 公钥（base64）
	HeaderKeyExchange = "__KeyExchange"
)

// Message 流经处理管道的消息
//
// 出站时 Payload 由序列化阶段写入 Body，随后各阶段原地变换 Body；
// 入站时按相反顺序还原 Body，最后由序列化阶段解码到 Payload。
type Message struct {
	// Headers 传输头
	Headers map[string]string

	// Payload 解码后的负载
	Payload any

	// Body 线上字节
	Body []byte

	// Peer 对端地址（入站时由通道填写）
	Peer net.Addr
}

// NewMessage 创建携带负载的出站消息
func NewMessage(payload any) *Message {
	return &Message{
		Headers: make(map[string]string),
		Payload: payload,
	}
}

// SetHeader 设置消息头
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// Header 读取消息头
func (m *Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}
