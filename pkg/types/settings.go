package types

import (
	"maps"
	"sort"
	"time"
)

// 通道构造参数键名（由底层通道构造函数消费）
const (
	// SettingName 通道标识
	SettingName = "name"

	// SettingPort 监听端口，0 表示临时端口
	SettingPort = "port"

	// SettingInterface TCP 系协议的绑定地址
	SettingInterface = "interface"

	// SettingAddress gudp 的绑定地址，形如 gudp://0.0.0.0
	SettingAddress = "Address"

	// SettingTypeFilterLevel 反序列化过滤级别，始终为 full
	SettingTypeFilterLevel = "typeFilterLevel"

	// SettingInvocationTimeout 调用超时
	SettingInvocationTimeout = "InvocationTimeout"

	// SettingConnectTimeout 连接超时
	SettingConnectTimeout = "ConnectTimeout"

	// SettingNoSizeChecking 关闭消息大小检查
	SettingNoSizeChecking = "NoSizeChecking"

	// SettingConnectionAttempts 客户端最大连接尝试次数
	SettingConnectionAttempts = "connectionAttempts"

	// SettingOAEP 密钥交换是否使用 OAEP 填充
	SettingOAEP = "oaep"
)

// UnboundedTimeout 代表“无超时”的超长时长
const UnboundedTimeout = 10 * 24 * time.Hour

// Settings 通道构造参数表
type Settings map[string]any

// Clone 返回浅拷贝
func (s Settings) Clone() Settings {
	if s == nil {
		return Settings{}
	}
	return maps.Clone(s)
}

// String 读取字符串值
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Int 读取整数值
func (s Settings) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint16:
		return int(v)
	default:
		return 0
	}
}

// Bool 读取布尔值
func (s Settings) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Duration 读取时长值
func (s Settings) Duration(key string) time.Duration {
	v, _ := s[key].(time.Duration)
	return v
}

// Keys 返回排序后的键列表
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
