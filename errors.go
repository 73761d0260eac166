package remoting

import "github.com/dep2p/go-remoting/pkg/types"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 配置错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrUnsupportedProtocol 不支持的协议名称
	ErrUnsupportedProtocol = types.ErrUnsupportedProtocol

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = types.ErrInvalidArgument

	// ErrPortOutOfRange 端口超出 [0,65535]
	ErrPortOutOfRange = types.ErrPortOutOfRange

	// ErrNoEncryptionKey 启用了加密但没有密钥
	ErrNoEncryptionKey = types.ErrNoEncryptionKey

	// ────────────────────────────────────────────────────────────────────────
	// 通道错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoChannelConstructor 未绑定通道构造函数
	ErrNoChannelConstructor = types.ErrNoChannelConstructor

	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = types.ErrChannelClosed
)
