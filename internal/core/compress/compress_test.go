package compress

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/pkg/types"
)

func TestCompress_RoundTrip(t *testing.T) {
	ctx := context.Background()
	body := bytes.Repeat([]byte("gtcp://10.0.0.5:8080/HostA "), 4096)

	for _, method := range []string{config.CompressionZstd, config.CompressionS2, config.CompressionDeflate} {
		t.Run(method, func(t *testing.T) {
			s, err := New(config.CompressionConfig{Method: method, Threshold: 1024})
			require.NoError(t, err)
			assert.Equal(t, method, s.Method())

			msg := &types.Message{Body: append([]byte(nil), body...)}
			require.NoError(t, s.Outbound(ctx, msg))
			assert.Equal(t, method, msg.Header(types.HeaderCompression))
			assert.Less(t, len(msg.Body), len(body))

			require.NoError(t, s.Inbound(ctx, msg))
			assert.Equal(t, body, msg.Body)
			assert.Empty(t, msg.Header(types.HeaderCompression))
		})
	}
	t.Log("✅ zstd/s2/deflate 往返一致")
}

func TestCompress_BelowThreshold(t *testing.T) {
	s, err := New(config.CompressionConfig{Method: "ZSTD", Threshold: 1024})
	require.NoError(t, err)

	msg := &types.Message{Body: []byte("small")}
	require.NoError(t, s.Outbound(context.Background(), msg))
	assert.Equal(t, []byte("small"), msg.Body)
	assert.Empty(t, msg.Header(types.HeaderCompression))

	// 未标记的消息入站原样通过
	require.NoError(t, s.Inbound(context.Background(), msg))
	assert.Equal(t, []byte("small"), msg.Body)
}

func TestCompress_DecodesAnyMethod(t *testing.T) {
	ctx := context.Background()
	body := bytes.Repeat([]byte{'x'}, 4096)

	sender, err := New(config.CompressionConfig{Method: config.CompressionS2})
	require.NoError(t, err)
	receiver, err := New(config.CompressionConfig{Method: config.CompressionZstd})
	require.NoError(t, err)

	msg := &types.Message{Body: append([]byte(nil), body...)}
	require.NoError(t, sender.Outbound(ctx, msg))
	require.NoError(t, receiver.Inbound(ctx, msg))
	assert.Equal(t, body, msg.Body)
}

func TestCompress_Errors(t *testing.T) {
	_, err := New(config.CompressionConfig{Method: config.CompressionNone})
	assert.ErrorIs(t, err, types.ErrUnsupportedCompression)

	_, err = New(config.CompressionConfig{Method: "lz4"})
	assert.ErrorIs(t, err, types.ErrUnsupportedCompression)

	s, err := New(config.CompressionConfig{Method: config.CompressionS2})
	require.NoError(t, err)

	msg := &types.Message{Body: []byte("junk")}
	msg.SetHeader(types.HeaderCompression, "brotli")
	assert.ErrorIs(t, s.Inbound(context.Background(), msg), types.ErrUnsupportedCompression)

	msg.SetHeader(types.HeaderCompression, config.CompressionZstd)
	assert.Error(t, s.Inbound(context.Background(), msg))
}

func TestCompress_DecodeLimit(t *testing.T) {
	body := bytes.Repeat([]byte{0}, 8192)
	for _, method := range []string{config.CompressionZstd, config.CompressionS2, config.CompressionDeflate} {
		c, err := codecFor(method)
		require.NoError(t, err)
		packed, err := c.encode(body)
		require.NoError(t, err)

		_, err = c.decode(packed, 1024)
		assert.ErrorIs(t, err, types.ErrMessageTooLarge, method)
	}
}
