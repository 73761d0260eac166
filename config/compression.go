package config

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-remoting/pkg/types"
)

// 支持的压缩方法
const (
	CompressionNone    = "none"
	CompressionZstd    = "zstd"
	CompressionS2      = "s2"
	CompressionDeflate = "deflate"
)

// DefaultCompressionThreshold 小于该字节数的消息不压缩
const DefaultCompressionThreshold = 1 << 16

// CompressionConfig 压缩配置
type CompressionConfig struct {
	// Method 压缩方法，none 表示不加入压缩阶段
	Method string `json:"method"`

	// Threshold 压缩阈值（字节）
	Threshold int `json:"threshold"`
}

// DefaultCompressionConfig 返回默认压缩配置（不压缩）
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Method:    CompressionNone,
		Threshold: DefaultCompressionThreshold,
	}
}

// Enabled 报告是否需要压缩阶段
func (c CompressionConfig) Enabled() bool {
	m := strings.ToLower(c.Method)
	return m != "" && m != CompressionNone
}

// Validate 验证压缩配置
func (c CompressionConfig) Validate() error {
	switch strings.ToLower(c.Method) {
	case "", CompressionNone, CompressionZstd, CompressionS2, CompressionDeflate:
	default:
		return fmt.Errorf("%w: %q (expected none, zstd, s2 or deflate)", types.ErrUnsupportedCompression, c.Method)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: compression.threshold must be >= 0, got %d", types.ErrInvalidArgument, c.Threshold)
	}
	return nil
}
