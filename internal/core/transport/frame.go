package transport

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-remoting/pkg/types"
)

// headerError 响应帧中携带的远端错误
const headerError = "__Error"

// hardFrameLimit 关闭大小检查时仍然生效的上限
const hardFrameLimit = 1 << 30

// encodeFrame 将消息头与消息体编码为一帧
func encodeFrame(msg *types.Message) []byte {
	keys := make([]string, 0, len(msg.Headers))
	size := varint.UvarintSize(uint64(len(msg.Headers))) + len(msg.Body)
	for k, v := range msg.Headers {
		keys = append(keys, k)
		size += varint.UvarintSize(uint64(len(k))) + len(k) + varint.UvarintSize(uint64(len(v))) + len(v)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, size)
	buf = append(buf, varint.ToUvarint(uint64(len(keys)))...)
	for _, k := range keys {
		v := msg.Headers[k]
		buf = append(buf, varint.ToUvarint(uint64(len(k)))...)
		buf = append(buf, k...)
		buf = append(buf, varint.ToUvarint(uint64(len(v)))...)
		buf = append(buf, v...)
	}
	return append(buf, msg.Body...)
}

// decodeFrame 解码一帧
func decodeFrame(frame []byte) (*types.Message, error) {
	n, read, err := varint.FromUvarint(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: header count: %w", ErrBadFrame, err)
	}
	frame = frame[read:]
	if n > uint64(len(frame)) {
		return nil, fmt.Errorf("%w: %d headers in %d bytes", ErrBadFrame, n, len(frame))
	}

	msg := &types.Message{Headers: make(map[string]string, n)}
	for i := uint64(0); i < n; i++ {
		var k, v []byte
		if k, frame, err = readField(frame); err != nil {
			return nil, err
		}
		if v, frame, err = readField(frame); err != nil {
			return nil, err
		}
		msg.Headers[string(k)] = string(v)
	}
	msg.Body = append([]byte(nil), frame...)
	return msg, nil
}

func readField(b []byte) (field, rest []byte, err error) {
	n, read, err := varint.FromUvarint(b)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: field length: %w", ErrBadFrame, err)
	}
	b = b[read:]
	if n > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: field of %d bytes, %d left", ErrBadFrame, n, len(b))
	}
	return b[:n], b[n:], nil
}

// writeFrame 写入长度前缀与帧
func writeFrame(w io.Writer, frame []byte) (int, error) {
	prefix := varint.ToUvarint(uint64(len(frame)))
	if _, err := w.Write(prefix); err != nil {
		return 0, err
	}
	if _, err := w.Write(frame); err != nil {
		return 0, err
	}
	return len(prefix) + len(frame), nil
}

// readFrame 读取一帧，limit 为 0 时只受 hardFrameLimit 约束
func readFrame(r *bufio.Reader, limit int) ([]byte, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > hardFrameLimit {
		limit = hardFrameLimit
	}
	if n > uint64(limit) {
		return nil, fmt.Errorf("%w: frame of %d bytes, limit %d", types.ErrMessageTooLarge, n, limit)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// checkSize 出站前检查帧大小
func checkSize(frame []byte, limit int) error {
	if limit > 0 && len(frame) > limit {
		return fmt.Errorf("%w: frame of %d bytes, limit %d", types.ErrMessageTooLarge, len(frame), limit)
	}
	return nil
}
