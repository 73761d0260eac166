// Package compress 实现压缩阶段
//
// 出站时 Body 达到阈值才压缩，并以 __Compression 头标记所用方法；
// 入站时按消息头解压，未标记的消息原样通过。
// 解压端接受任意支持的方法，与本端配置的方法无关。
package compress

import (
	"context"
	"fmt"
	"strings"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// StageName 阶段名称
const StageName = "compress"

// maxDecodedSize 解压后允许的最大字节数
const maxDecodedSize = 16 << 20

// Stage 压缩阶段
type Stage struct {
	method    string
	threshold int
	codec     codec
	limit     int
}

var _ pkgif.Stage = (*Stage)(nil)

// New 创建压缩阶段
//
// method 为 none 或空时返回 ErrUnsupportedCompression：不压缩时不应加入该阶段。
func New(cfg config.CompressionConfig) (*Stage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method := strings.ToLower(cfg.Method)
	c, err := codecFor(method)
	if err != nil {
		return nil, err
	}
	return &Stage{
		method:    method,
		threshold: cfg.Threshold,
		codec:     c,
		limit:     maxDecodedSize,
	}, nil
}

// Name 实现 pkgif.Stage
func (s *Stage) Name() string {
	return StageName
}

// Method 返回压缩方法
func (s *Stage) Method() string {
	return s.method
}

// Outbound 压缩 Body
func (s *Stage) Outbound(_ context.Context, msg *types.Message) error {
	if len(msg.Body) < s.threshold {
		return nil
	}
	out, err := s.codec.encode(msg.Body)
	if err != nil {
		return err
	}
	msg.Body = out
	msg.SetHeader(types.HeaderCompression, s.method)
	return nil
}

// Inbound 按 __Compression 头解压 Body
func (s *Stage) Inbound(_ context.Context, msg *types.Message) error {
	method := msg.Header(types.HeaderCompression)
	if method == "" {
		return nil
	}
	c, err := codecFor(method)
	if err != nil {
		return fmt.Errorf("inbound: %w", err)
	}
	out, err := c.decode(msg.Body, s.limit)
	if err != nil {
		return err
	}
	msg.Body = out
	delete(msg.Headers, types.HeaderCompression)
	return nil
}
