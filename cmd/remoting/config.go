package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-remoting/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量（均使用 REMOTING_ 前缀）
const (
	envPrefix   = "REMOTING_"
	envProtocol = "PROTOCOL"
	envPort     = "PORT"
	envBind     = "BIND_ADDRESS"
	envSecret   = "SECRET"
	envDuplex   = "DUPLEX"
)

// loadConfig 加载配置文件，未指定时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(path)
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
//   - REMOTING_PROTOCOL: 协议名称
//   - REMOTING_PORT: 服务端端口
//   - REMOTING_BIND_ADDRESS: 绑定地址
//   - REMOTING_SECRET: 加密共享密钥，设置后启用加密
//   - REMOTING_DUPLEX: 未指定协议时是否选择双工 TCP
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envPrefix + envProtocol); v != "" {
		cfg.Protocol.Name = v
	}
	if v := os.Getenv(envPrefix + envPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(envPrefix + envBind); v != "" {
		cfg.Server.BindAddress = v
		cfg.Client.BindAddress = v
	}
	if v := os.Getenv(envPrefix + envSecret); v != "" {
		cfg.Protocol.Encryption = true
		cfg.Protocol.EncryptionSecret = []byte(v)
	}
	if v := os.Getenv(envPrefix + envDuplex); v != "" {
		cfg.Protocol.Duplex = parseBool(v)
	}
}

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
