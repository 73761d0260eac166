package crypt

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
)

// ============================================================================
//                              会话密钥协商
// ============================================================================

// KeyPair X25519 密钥对
//
// 服务端通道持有一个长期密钥对，客户端每次调用生成临时密钥对；
// 双方的 X25519 结果即会话密钥，再经 HKDF 派生出算法专用密钥。
type KeyPair struct {
	private [curve25519.ScalarSize]byte
	public  string
}

// GenerateKeyPair 生成随机密钥对
func GenerateKeyPair() (*KeyPair, error) {
	k := &KeyPair{}
	if _, err := io.ReadFull(rand.Reader, k.private[:]); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	pub, err := curve25519.X25519(k.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyExchange, err)
	}
	k.public = base64.RawStdEncoding.EncodeToString(pub)
	return k, nil
}

// Public 返回编码后的公钥，用作 __KeyExchange 头的值
func (k *KeyPair) Public() string {
	return k.public
}

// SharedSecret 与对端公钥计算会话密钥
func (k *KeyPair) SharedSecret(peer string) ([]byte, error) {
	pub, err := base64.RawStdEncoding.DecodeString(peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyExchange, err)
	}
	if len(pub) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrKeyExchange, len(pub))
	}
	// 低阶点会得到全零结果，X25519 对此返回错误
	secret, err := curve25519.X25519(k.private[:], pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyExchange, err)
	}
	return secret, nil
}

type sessionKey struct{}

// WithSessionSecret 将会话密钥放入 ctx
func WithSessionSecret(ctx context.Context, secret []byte) context.Context {
	return context.WithValue(ctx, sessionKey{}, secret)
}

// SessionSecret 取出 ctx 中的会话密钥
func SessionSecret(ctx context.Context) []byte {
	secret, _ := ctx.Value(sessionKey{}).([]byte)
	return secret
}

// NeedsSessionKey 报告管道中是否有依赖会话密钥的加密阶段
func NeedsSessionKey(p pkgif.Pipeline) bool {
	for _, st := range p.Stages() {
		if s, ok := st.(*Stage); ok && s.Negotiated() {
			return true
		}
	}
	return false
}
