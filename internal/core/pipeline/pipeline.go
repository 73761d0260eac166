// Package pipeline 实现消息处理管道与管道构建器
//
// 阶段顺序固定：
//
//	序列化 → 加密（启用时）→ 压缩（配置时）→ 调用方地址（仅服务端，总在最后）
//
// 出站按顺序执行，入站按完全相反的顺序执行。
package pipeline

import (
	"context"
	"fmt"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/pipeline")

// Pipeline 有序阶段列表
type Pipeline struct {
	side   types.Side
	stages []pkgif.Stage
}

var _ pkgif.Pipeline = (*Pipeline)(nil)

// New 创建管道
func New(side types.Side, stages ...pkgif.Stage) *Pipeline {
	return &Pipeline{
		side:   side,
		stages: append([]pkgif.Stage(nil), stages...),
	}
}

// Side 实现 pkgif.Pipeline
func (p *Pipeline) Side() types.Side {
	return p.side
}

// Stages 实现 pkgif.Pipeline
func (p *Pipeline) Stages() []pkgif.Stage {
	return append([]pkgif.Stage(nil), p.stages...)
}

// Names 实现 pkgif.Pipeline
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Outbound 按顺序执行所有阶段
func (p *Pipeline) Outbound(ctx context.Context, msg *types.Message) error {
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Outbound(ctx, msg); err != nil {
			return fmt.Errorf("%s outbound: %w", s.Name(), err)
		}
	}
	return nil
}

// Inbound 按相反顺序执行所有阶段
func (p *Pipeline) Inbound(ctx context.Context, msg *types.Message) error {
	for i := len(p.stages) - 1; i >= 0; i-- {
		s := p.stages[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Inbound(ctx, msg); err != nil {
			return fmt.Errorf("%s inbound: %w", s.Name(), err)
		}
	}
	return nil
}
