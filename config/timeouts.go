package config

import (
	"fmt"

	"github.com/dep2p/go-remoting/pkg/types"
)

// TimeoutConfig 转发给通道的超时
//
// 默认值为 types.UnboundedTimeout，代表“无超时”。
type TimeoutConfig struct {
	// Invocation 调用超时
	Invocation Duration `json:"invocation"`

	// Connect 连接超时
	Connect Duration `json:"connect"`
}

// DefaultTimeoutConfig 返回默认超时配置
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Invocation: Duration(types.UnboundedTimeout),
		Connect:    Duration(types.UnboundedTimeout),
	}
}

// Validate 验证超时配置
func (c TimeoutConfig) Validate() error {
	if c.Invocation <= 0 {
		return fmt.Errorf("%w: timeouts.invocation must be > 0", types.ErrInvalidArgument)
	}
	if c.Connect <= 0 {
		return fmt.Errorf("%w: timeouts.connect must be > 0", types.ErrInvalidArgument)
	}
	return nil
}
