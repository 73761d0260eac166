// Package interfaces 定义 go-remoting 公共接口
//
// 本文件定义 Channel 相关接口。
package interfaces

import (
	"context"
	"net"
	"time"

	"github.com/dep2p/go-remoting/pkg/types"
)

// Channel 已构造的通道（监听器/连接器对），由名称标识
//
// 具体的套接字 I/O 属于外部协作者，这里只要求能报告自身名称。
type Channel interface {
	// Name 返回通道名称
	Name() string
}

// Handler 服务端请求处理函数
//
// req 已经过服务端管道入站处理；返回的响应经服务端管道出站后发回，
// 返回 nil 响应时回复空消息。
type Handler func(ctx context.Context, req *types.Message) (*types.Message, error)

// Invoker 可以发起调用的通道
type Invoker interface {
	// Call 向 url 指向的远端发送 payload 并等待响应
	Call(ctx context.Context, url string, payload any) (*types.Message, error)
}

// Listener 可以接受调用的通道
type Listener interface {
	// SetHandler 设置请求处理函数
	SetHandler(h Handler)

	// Start 开始监听
	Start(ctx context.Context) error

	// Addr 返回监听地址，未启动时返回 nil
	Addr() net.Addr
}

// ParameterProvider 通道在构造后需要被设置的运行期参数
//
// 通道构造方实现该能力接口，协议配置不依赖通道的具体类型。
type ParameterProvider interface {
	// SetInvocationTimeout 设置调用超时
	SetInvocationTimeout(d time.Duration)

	// SetSizeChecking 开关消息大小检查
	SetSizeChecking(enabled bool)
}

// ChannelConstructor 底层通道构造函数
//
// 参数依次为：解析后的构造参数、客户端侧管道、服务端侧管道。
type ChannelConstructor func(settings types.Settings, client, server Pipeline) (Channel, error)

// ChannelHandle 一个已构造通道的句柄
//
// 由 ChannelRegistry 独占持有，同名只会存在一个。
type ChannelHandle struct {
	// Name 注册键
	Name string

	// Channel 底层通道
	Channel Channel

	// Settings 构造时使用的参数表
	Settings types.Settings

	// Protocol 构造该通道的协议
	Protocol types.ProtocolID
}
