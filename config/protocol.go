package config

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-remoting/pkg/types"
)

// 支持的加密算法
const (
	AlgorithmChaCha20Poly1305  = "ChaCha20-Poly1305"
	AlgorithmXChaCha20Poly1305 = "XChaCha20-Poly1305"
	AlgorithmAESGCM            = "AES-GCM"
)

// DefaultAlgorithm 默认加密算法
const DefaultAlgorithm = AlgorithmChaCha20Poly1305

// Algorithms 返回支持的加密算法
func Algorithms() []string {
	return []string{AlgorithmChaCha20Poly1305, AlgorithmXChaCha20Poly1305, AlgorithmAESGCM}
}

// CanonicalAlgorithm 将算法名规范化（大小写不敏感）
func CanonicalAlgorithm(name string) (string, error) {
	if name == "" {
		return DefaultAlgorithm, nil
	}
	for _, a := range Algorithms() {
		if strings.EqualFold(a, name) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of %s)", types.ErrUnsupportedAlgorithm, name, strings.Join(Algorithms(), ", "))
}

// ProtocolConfig 协议配置
type ProtocolConfig struct {
	// Name 协议名称（tcp、tcpex、gtcp、gudp 及其别名）
	Name string `json:"name"`

	// Duplex 未指定协议名称时选择双工 TCP
	Duplex bool `json:"duplex"`

	// Versioning 版本策略
	Versioning types.Versioning `json:"versioning"`

	// Encryption 是否启用加密阶段
	Encryption bool `json:"encryption"`

	// Algorithm 对称加密算法
	Algorithm string `json:"algorithm,omitempty"`

	// OAEP 密钥交换使用 OAEP 填充
	OAEP bool `json:"oaep"`

	// EncryptionSecret 预共享密钥（不序列化），为空时通道协商会话密钥
	EncryptionSecret []byte `json:"-"`
}

// DefaultProtocolConfig 返回默认协议配置
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Name:       "",
		Duplex:     true,
		Versioning: types.VersioningStrict,
		Algorithm:  DefaultAlgorithm,
	}
}

// Validate 验证协议配置
func (c ProtocolConfig) Validate() error {
	if c.Versioning != types.VersioningStrict && c.Versioning != types.VersioningTolerant {
		return fmt.Errorf("%w: versioning %d", types.ErrInvalidArgument, c.Versioning)
	}
	if _, err := CanonicalAlgorithm(c.Algorithm); err != nil {
		return err
	}
	return nil
}
