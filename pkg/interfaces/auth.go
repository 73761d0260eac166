package interfaces

import "context"

// AuthenticationProvider 认证提供者
//
// 由调用方注入服务端配置，本子系统只保存、不解释。
type AuthenticationProvider interface {
	// Authenticate 校验凭据
	Authenticate(ctx context.Context, credentials map[string]string) error
}

// AuthenticationFunc 函数形式的 AuthenticationProvider
type AuthenticationFunc func(ctx context.Context, credentials map[string]string) error

// Authenticate 实现 AuthenticationProvider
func (f AuthenticationFunc) Authenticate(ctx context.Context, credentials map[string]string) error {
	return f(ctx, credentials)
}
