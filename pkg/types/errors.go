// Package types 定义 go-remoting 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              配置错误
// ============================================================================

var (
	// ErrInvalidArgument 参数无效（如 URL 组成部分数量不对）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPortOutOfRange 端口超出 [0,65535]
	ErrPortOutOfRange = errors.New("port out of range")

	// ErrUnsupportedProtocol 不支持的协议名称
	ErrUnsupportedProtocol = errors.New("protocol not supported")

	// ErrUnsupportedAlgorithm 不支持的加密算法
	ErrUnsupportedAlgorithm = errors.New("encryption algorithm not supported")

	// ErrUnsupportedCompression 不支持的压缩方法
	ErrUnsupportedCompression = errors.New("compression method not supported")

	// ErrNoEncryptionKey 启用了加密但没有密钥来源
	ErrNoEncryptionKey = errors.New("encryption enabled but no key source configured")
)

// ============================================================================
//                              依赖缺失错误
// ============================================================================

var (
	// ErrNoChannelConstructor 未绑定通道构造函数
	//
	// 属于编程错误，不应重试。
	ErrNoChannelConstructor = errors.New("no channel constructor specified")
)

// ============================================================================
//                              环境错误
// ============================================================================

var (
	// ErrAddressDiscovery 网卡枚举与主机名解析均失败
	ErrAddressDiscovery = errors.New("local address discovery failed")
)

// ============================================================================
//                              管道错误
// ============================================================================

var (
	// ErrTypeMismatch 严格版本模式下消息类型不一致
	ErrTypeMismatch = errors.New("message type mismatch")

	// ErrTypeFiltered 类型被过滤级别拒绝
	ErrTypeFiltered = errors.New("message type rejected by type filter")

	// ErrMessageTooLarge 消息超过大小限制
	ErrMessageTooLarge = errors.New("message exceeds size limit")

	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = errors.New("channel closed")
)
