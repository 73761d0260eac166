package formatter

import "errors"

var (
	// ErrNotProtoMessage 出站负载不是 proto.Message
	ErrNotProtoMessage = errors.New("payload is not a proto.Message")

	// ErrEmptyBody 入站消息体为空
	ErrEmptyBody = errors.New("empty message body")
)
