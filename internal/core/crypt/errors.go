package crypt

import "errors"

var (
	// ErrDecrypt 解密或认证失败
	ErrDecrypt = errors.New("message authentication failed")

	// ErrAlgorithmMismatch 对端使用的算法与本端配置不一致
	ErrAlgorithmMismatch = errors.New("encryption algorithm mismatch")

	// ErrNotEncrypted 入站消息未加密
	ErrNotEncrypted = errors.New("message is not encrypted")

	// ErrKeyExchange 对端公钥无效或协商失败
	ErrKeyExchange = errors.New("key exchange failed")
)
