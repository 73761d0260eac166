// Package interfaces 定义 go-remoting 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - channel.go    - 通道、构造函数与运行期参数能力（internal/core/transport）
//   - pipeline.go   - 处理阶段与管道（internal/core/pipeline）
//   - registry.go   - 通道注册表（internal/core/registry）
//   - netaddr.go    - 本机地址发现（internal/core/netaddr）
//   - setup.go      - 协议配置（internal/core/setup）
//   - auth.go       - 认证提供者（外部注入，不在此解释）
//
// # 依赖方向
//
//	remoting → setup → pipeline / registry / netaddr → types
//
// 禁止反向依赖。
package interfaces
