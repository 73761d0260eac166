package crypt

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/pkg/types"
)

var secret = []byte("shared secret between peers")

func TestCrypt_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, alg := range config.Algorithms() {
		t.Run(alg, func(t *testing.T) {
			s, err := New(alg, secret)
			require.NoError(t, err)
			assert.Equal(t, alg, s.Algorithm())

			plain := []byte("remote call body")
			msg := &types.Message{Body: append([]byte(nil), plain...)}
			require.NoError(t, s.Outbound(ctx, msg))
			assert.Equal(t, alg, msg.Header(types.HeaderEncryption))
			assert.False(t, bytes.Contains(msg.Body, plain))

			require.NoError(t, s.Inbound(ctx, msg))
			assert.Equal(t, plain, msg.Body)
			assert.Empty(t, msg.Header(types.HeaderEncryption))
		})
	}
	t.Log("✅ 所有算法加解密往返一致")
}

func TestCrypt_DefaultAndCaseInsensitive(t *testing.T) {
	s, err := New("", secret)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAlgorithm, s.Algorithm())

	s, err = New("aes-gcm", secret)
	require.NoError(t, err)
	assert.Equal(t, config.AlgorithmAESGCM, s.Algorithm())
}

func TestCrypt_ConfigErrors(t *testing.T) {
	_, err := New("3DES", secret)
	assert.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)

	// 无预共享密钥时可以创建，但消息缺少会话密钥时报错
	s, err := New(config.DefaultAlgorithm, nil)
	require.NoError(t, err)
	assert.True(t, s.Negotiated())
	assert.ErrorIs(t, s.Outbound(context.Background(), &types.Message{Body: []byte("x")}), types.ErrNoEncryptionKey)

	msg := &types.Message{Body: []byte("x")}
	msg.SetHeader(types.HeaderEncryption, s.Algorithm())
	assert.ErrorIs(t, s.Inbound(context.Background(), msg), types.ErrNoEncryptionKey)
}

func TestCrypt_Tampered(t *testing.T) {
	ctx := context.Background()
	s, err := New("", secret)
	require.NoError(t, err)

	msg := &types.Message{Body: []byte("payload")}
	require.NoError(t, s.Outbound(ctx, msg))
	msg.Body[len(msg.Body)-1] ^= 0xff
	assert.ErrorIs(t, s.Inbound(ctx, msg), ErrDecrypt)

	short := &types.Message{Body: []byte{1, 2}}
	short.SetHeader(types.HeaderEncryption, s.Algorithm())
	assert.ErrorIs(t, s.Inbound(ctx, short), ErrDecrypt)
}

func TestCrypt_WrongKeyOrAlgorithm(t *testing.T) {
	ctx := context.Background()
	a, err := New("", secret)
	require.NoError(t, err)
	b, err := New("", []byte("another secret"))
	require.NoError(t, err)
	c, err := New(config.AlgorithmAESGCM, secret)
	require.NoError(t, err)

	msg := &types.Message{Body: []byte("payload")}
	require.NoError(t, a.Outbound(ctx, msg))

	wrongKey := &types.Message{Body: append([]byte(nil), msg.Body...), Headers: map[string]string{types.HeaderEncryption: a.Algorithm()}}
	assert.ErrorIs(t, b.Inbound(ctx, wrongKey), ErrDecrypt)

	assert.ErrorIs(t, c.Inbound(ctx, msg), ErrAlgorithmMismatch)
	assert.ErrorIs(t, a.Inbound(ctx, &types.Message{Body: []byte("plain")}), ErrNotEncrypted)
}

func TestDeriveKey_PerAlgorithm(t *testing.T) {
	k1, err := deriveKey(config.AlgorithmChaCha20Poly1305, secret)
	require.NoError(t, err)
	k2, err := deriveKey(config.AlgorithmAESGCM, secret)
	require.NoError(t, err)
	assert.Len(t, k1, keySize)
	assert.NotEqual(t, k1, k2)
}
