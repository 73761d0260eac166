// Package types 定义 go-remoting 的基础类型
//
// 本包不依赖任何内部实现，供 pkg/interfaces 与 internal 各模块共享：
//   - enums.go     - Versioning、TypeFilterLevel 等枚举
//   - protocol.go  - 协议标识与 URL scheme
//   - settings.go  - 通道构造参数表（Settings）及键名
//   - message.go   - 流经处理管道的消息
//   - errors.go    - 公共错误
package types
