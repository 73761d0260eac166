// Package crypt 实现加密阶段
//
// 对称 AEAD 加密，密钥由共享密钥经 HKDF-SHA256 派生，算法名参与派生，
// 不同算法不会得到相同的密钥。线上格式为 nonce || ciphertext，
// 算法名写入 __Encryption 头。
//
// 共享密钥有两种来源：创建阶段时给出的预共享密钥，或者通道在每次调用前
// 经 X25519 协商并放入 context 的会话密钥（见 WithSessionSecret）。
//
// 支持的算法见 config.Algorithms()。
package crypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// StageName 阶段名称
const StageName = "crypt"

// keySize 派生密钥长度
const keySize = 32

// hkdfInfo 密钥派生上下文前缀
const hkdfInfo = "go-remoting channel key "

// Stage 加密阶段
type Stage struct {
	algorithm string

	// aead 由预共享密钥派生，为 nil 时使用会话密钥
	aead cipher.AEAD
}

var _ pkgif.Stage = (*Stage)(nil)

// New 创建加密阶段
//
// algorithm 大小写不敏感，空串表示默认算法；secret 为空时阶段依赖
// 通道协商的会话密钥。
func New(algorithm string, secret []byte) (*Stage, error) {
	canonical, err := config.CanonicalAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return &Stage{algorithm: canonical}, nil
	}

	key, err := deriveKey(canonical, secret)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(canonical, key)
	if err != nil {
		return nil, err
	}
	return &Stage{algorithm: canonical, aead: aead}, nil
}

// Name 实现 pkgif.Stage
func (s *Stage) Name() string {
	return StageName
}

// Algorithm 返回规范化后的算法名
func (s *Stage) Algorithm() string {
	return s.algorithm
}

// Negotiated 报告阶段是否依赖会话密钥
func (s *Stage) Negotiated() bool {
	return s.aead == nil
}

// cipherFor 返回本次消息使用的 AEAD
func (s *Stage) cipherFor(ctx context.Context) (cipher.AEAD, error) {
	if s.aead != nil {
		return s.aead, nil
	}
	secret := SessionSecret(ctx)
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: algorithm %s has no pre-shared or session key", types.ErrNoEncryptionKey, s.algorithm)
	}
	key, err := deriveKey(s.algorithm, secret)
	if err != nil {
		return nil, err
	}
	return newAEAD(s.algorithm, key)
}

// Outbound 加密 Body
func (s *Stage) Outbound(ctx context.Context, msg *types.Message) error {
	aead, err := s.cipherFor(ctx)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(msg.Body)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	msg.Body = aead.Seal(nonce, nonce, msg.Body, nil)
	msg.SetHeader(types.HeaderEncryption, s.algorithm)
	return nil
}

// Inbound 解密 Body
func (s *Stage) Inbound(ctx context.Context, msg *types.Message) error {
	alg := msg.Header(types.HeaderEncryption)
	if alg == "" {
		return ErrNotEncrypted
	}
	if alg != s.algorithm {
		return fmt.Errorf("%w: peer %s, local %s", ErrAlgorithmMismatch, alg, s.algorithm)
	}

	aead, err := s.cipherFor(ctx)
	if err != nil {
		return err
	}
	ns := aead.NonceSize()
	if len(msg.Body) < ns+aead.Overhead() {
		return fmt.Errorf("%w: body too short (%d bytes)", ErrDecrypt, len(msg.Body))
	}
	plain, err := aead.Open(nil, msg.Body[:ns], msg.Body[ns:], nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	msg.Body = plain
	delete(msg.Headers, types.HeaderEncryption)
	return nil
}

// deriveKey 由共享密钥派生算法专用密钥
func deriveKey(algorithm string, secret []byte) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo+algorithm))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newAEAD(algorithm string, key []byte) (cipher.AEAD, error) {
	switch algorithm {
	case config.AlgorithmChaCha20Poly1305:
		return chacha20poly1305.New(key)
	case config.AlgorithmXChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	case config.AlgorithmAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aes: %w", err)
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedAlgorithm, algorithm)
	}
}
