package interfaces

import (
	"context"

	"github.com/dep2p/go-remoting/pkg/types"
)

// Stage 处理管道中的一个阶段
//
// Outbound 在发送时按管道顺序调用，Inbound 在接收时按相反顺序调用。
type Stage interface {
	// Name 返回阶段名称
	Name() string

	// Outbound 处理出站消息
	Outbound(ctx context.Context, msg *types.Message) error

	// Inbound 处理入站消息
	Inbound(ctx context.Context, msg *types.Message) error
}

// Pipeline 有序的阶段列表
type Pipeline interface {
	// Side 返回管道所在侧
	Side() types.Side

	// Stages 返回阶段列表（副本）
	Stages() []Stage

	// Names 返回阶段名称列表
	Names() []string

	// Outbound 依次执行所有阶段的 Outbound
	Outbound(ctx context.Context, msg *types.Message) error

	// Inbound 逆序执行所有阶段的 Inbound
	Inbound(ctx context.Context, msg *types.Message) error
}
