// Package remoting 提供可插拔的传输配置与通道标识
//
// 调用方按名称选择线协议，得到一个协议配置（ProtocolSetup）；
// 协议配置组装处理管道，并通过通道注册表按名称取得或构造通道。
//
// # 协议
//
//   - tcpex：双工 TCP，回调走同一逻辑连接
//   - tcp：普通 TCP
//   - gtcp：Genuine TCP，关闭消息大小检查
//   - gudp：Genuine UDP，绑定地址写成 gudp://<addr>
//
// 协议名称大小写不敏感，并接受别名（如 duplex、genuinetcp）。
// 空名称或 tcp 在 duplex 为 true 时选择 tcpex。
//
// # 快速开始
//
//	import remoting "github.com/dep2p/go-remoting"
//
//	// 服务端
//	srv, err := remoting.Server("gtcp", 9000, nil, true, true,
//	    remoting.WithSecret([]byte("shared secret")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handle, err := srv.CreateChannel(ctx)
//	listener := handle.Channel.(interfaces.Listener)
//	listener.SetHandler(handler)
//	_ = listener.Start(ctx)
//
//	// 客户端
//	cli, _ := remoting.Client("gtcp", true, true,
//	    remoting.WithSecret([]byte("shared secret")))
//	handle, _ = cli.CreateChannel(ctx)
//	url, _ := cli.FormatURL("10.0.0.5", 9000, "HostA")
//	resp, err := handle.Channel.(interfaces.Invoker).Call(ctx, url, payload)
//
// 开启加密但不给 WithSecret 时，通道在每次调用前以 X25519 协商会话密钥。
//
// # 回调地址
//
// 服务端的 DiscoverableURL 使用本机可达地址生成回调 URL，
// IsDiscoverableURL 拒绝不指向本机真实地址或端口为 0 的 URL。
//
// # 依赖注入
//
// Module 以 go.uber.org/fx 组装地址发现、通道注册表、管道构建器、
// 通道构造函数与 Factory；NewApp 在此基础上启动应用。
package remoting
