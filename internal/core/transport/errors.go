package transport

import "errors"

var (
	// ErrAlreadyStarted 通道已在监听
	ErrAlreadyStarted = errors.New("channel already started")

	// ErrNoHandler 服务端未设置处理函数
	ErrNoHandler = errors.New("no handler installed")

	// ErrRemote 对端处理请求失败
	ErrRemote = errors.New("remote call failed")

	// ErrBadFrame 帧格式错误
	ErrBadFrame = errors.New("malformed frame")

	// ErrWrongScheme URL 协议与通道不符
	ErrWrongScheme = errors.New("url scheme does not match channel protocol")
)
