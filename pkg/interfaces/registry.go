package interfaces

import "github.com/dep2p/go-remoting/pkg/types"

// ChannelRegistry 通道名称到通道句柄的缓存
//
// 同一名称最多存在一个存活通道。
type ChannelRegistry interface {
	// Lookup 按名称查找
	Lookup(name string) (*ChannelHandle, bool)

	// GetOrCreate 查找，未命中时调用 build 构造并注册
	//
	// 同名并发调用只会执行一次 build，所有调用者得到同一个句柄。
	GetOrCreate(name string, protocol types.ProtocolID, build func() (*ChannelHandle, error)) (*ChannelHandle, error)

	// Names 返回已注册的名称
	Names() []string
}
