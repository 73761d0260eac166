package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/pkg/types"
)

// codec 一种压缩方法
type codec interface {
	encode(src []byte) ([]byte, error)
	decode(src []byte, limit int) ([]byte, error)
}

// codecFor 按方法名返回编解码器
func codecFor(method string) (codec, error) {
	switch method {
	case config.CompressionZstd:
		return zstdCodec{}, nil
	case config.CompressionS2:
		return s2Codec{}, nil
	case config.CompressionDeflate:
		return deflateCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedCompression, method)
	}
}

// ============================================================================
//                              zstd
// ============================================================================

// zstd 的 Encoder/Decoder 可并发使用 EncodeAll/DecodeAll，进程内共享一份
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecodedSize))
	})
)

type zstdCodec struct{}

func (zstdCodec) encode(src []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (zstdCodec) decode(src []byte, limit int) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: decompressed %d bytes, limit %d", types.ErrMessageTooLarge, len(out), limit)
	}
	return out, nil
}

// ============================================================================
//                              s2
// ============================================================================

type s2Codec struct{}

func (s2Codec) encode(src []byte) ([]byte, error) {
	return s2.Encode(nil, src), nil
}

func (s2Codec) decode(src []byte, limit int) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: decompressed %d bytes, limit %d", types.ErrMessageTooLarge, n, limit)
	}
	out, err := s2.Decode(make([]byte, n), src)
	if err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}
	return out, nil
}

// ============================================================================
//                              deflate
// ============================================================================

type deflateCodec struct{}

func (deflateCodec) encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

func (deflateCodec) decode(src []byte, limit int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: decompressed more than %d bytes", types.ErrMessageTooLarge, limit)
	}
	return out, nil
}
