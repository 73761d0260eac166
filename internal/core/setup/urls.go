package setup

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/pkg/types"
)

// IsWellFormedURL 检查通用 URL 语法 <scheme>://<host>:<port>/<endpointName>
//
// 要求：绝对 URL、主机非空、端口为 [0,65535] 内的数字、端点名非空。
func IsWellFormedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return false
	}
	if u.Hostname() == "" {
		return false
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 0 || port > config.MaxPort {
		return false
	}
	return strings.TrimPrefix(u.Path, "/") != ""
}

// hasScheme 报告 raw 是否以 <scheme>:// 开头（scheme 大小写不敏感）
func hasScheme(raw string, id types.ProtocolID) bool {
	prefix := id.SchemePrefix()
	return len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix)
}

// formatURL 生成 <scheme>://<host>:<port>/<name>
//
// IPv6 字面量加方括号，已带方括号的不重复添加。
func formatURL(id types.ProtocolID, host string, port int, name string) string {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return id.SchemePrefix() + net.JoinHostPort(host, strconv.Itoa(port)) + "/" + url.PathEscape(name)
}

// urlParts 校验并解析 FormatURL 的三个组成部分
func urlParts(kind string, parts []any) (host string, port int, name string, err error) {
	if len(parts) != 3 {
		return "", 0, "", fmt.Errorf("%w: %s requires three URL parts (server address, port number, endpoint name), got %d",
			types.ErrInvalidArgument, kind, len(parts))
	}

	host = fmt.Sprint(parts[0])
	if strings.TrimSpace(host) == "" {
		return "", 0, "", fmt.Errorf("%w: server address must not be empty", types.ErrInvalidArgument)
	}

	port, err = toPort(parts[1])
	if err != nil {
		return "", 0, "", err
	}

	name = fmt.Sprint(parts[2])
	if strings.TrimSpace(name) == "" {
		return "", 0, "", fmt.Errorf("%w: endpoint name must not be empty", types.ErrInvalidArgument)
	}
	return host, port, name, nil
}

// toPort 将端口参数转换为 int 并校验范围
func toPort(v any) (int, error) {
	var port int
	switch p := v.(type) {
	case int:
		port = p
	case int32:
		port = int(p)
	case int64:
		port = int(p)
	case uint16:
		port = int(p)
	case uint32:
		port = int(p)
	case string:
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: port number %q is not numeric", types.ErrInvalidArgument, p)
		}
		port = n
	default:
		return 0, fmt.Errorf("%w: port number of type %T", types.ErrInvalidArgument, v)
	}
	if port < 0 || port > config.MaxPort {
		return 0, fmt.Errorf("%w: port must be in [0,%d], got %d", types.ErrPortOutOfRange, config.MaxPort, port)
	}
	return port, nil
}
