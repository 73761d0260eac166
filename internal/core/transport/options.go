package transport

import (
	"time"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/metrics"
)

// Options 通道公共选项
type Options struct {
	// MaxMessageSize 大小检查开启时的帧上限
	MaxMessageSize int

	// DialTimeout 单次拨号（gudp 为单次等待响应）超时
	DialTimeout time.Duration

	// DialBackoff 重试的初始间隔
	DialBackoff time.Duration

	// Reporter 指标记录器
	Reporter metrics.Reporter
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	d := config.DefaultTransportConfig()
	return Options{
		MaxMessageSize: d.MaxMessageSize,
		DialTimeout:    d.DialTimeout.Duration(),
		DialBackoff:    d.DialBackoff.Duration(),
		Reporter:       metrics.Nop(),
	}
}

// OptionsFromConfig 从统一配置创建选项
func OptionsFromConfig(cfg *config.Config, reporter metrics.Reporter) Options {
	opts := DefaultOptions()
	if cfg != nil {
		opts.MaxMessageSize = cfg.Transport.MaxMessageSize
		opts.DialTimeout = cfg.Transport.DialTimeout.Duration()
		opts.DialBackoff = cfg.Transport.DialBackoff.Duration()
	}
	opts.Reporter = metrics.OrNop(reporter)
	return opts
}
