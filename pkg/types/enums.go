package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Versioning - 版本策略
// ============================================================================

// Versioning 序列化类型标识的版本策略
type Versioning int

const (
	// VersioningStrict 类型标识必须完全一致
	VersioningStrict Versioning = iota
	// VersioningTolerant 容忍类型名/版本漂移
	VersioningTolerant
)

// String 返回版本策略的字符串表示
func (v Versioning) String() string {
	switch v {
	case VersioningStrict:
		return "strict"
	case VersioningTolerant:
		return "tolerant"
	default:
		return "unknown"
	}
}

// ParseVersioning 解析版本策略（大小写不敏感）
func ParseVersioning(s string) (Versioning, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return VersioningStrict, nil
	case "tolerant":
		return VersioningTolerant, nil
	default:
		return VersioningStrict, fmt.Errorf("%w: versioning %q (expected strict or tolerant)", ErrInvalidArgument, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (v Versioning) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (v *Versioning) UnmarshalText(text []byte) error {
	parsed, err := ParseVersioning(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ============================================================================
//                              TypeFilterLevel - 反序列化过滤级别
// ============================================================================

// TypeFilterLevel 反序列化宽松程度
type TypeFilterLevel int

const (
	// TypeFilterFull 允许任何已注册类型
	TypeFilterFull TypeFilterLevel = iota
	// TypeFilterLow 仅允许白名单内的类型
	TypeFilterLow
)

// String 返回过滤级别的字符串表示
func (l TypeFilterLevel) String() string {
	switch l {
	case TypeFilterFull:
		return "full"
	case TypeFilterLow:
		return "low"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Side - 管道所在侧
// ============================================================================

// Side 管道所在侧
type Side int

const (
	// SideClient 客户端侧管道
	SideClient Side = iota
	// SideServer 服务端侧管道
	SideServer
)

// String 返回侧的字符串表示
func (s Side) String() string {
	if s == SideServer {
		return "server"
	}
	return "client"
}
