package transport

import (
	"fmt"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// Constructors 协议到通道构造函数的映射
type Constructors map[types.ProtocolID]pkgif.ChannelConstructor

// NewConstructors 为四个内置协议创建构造函数
func NewConstructors(opts Options) Constructors {
	return Constructors{
		types.ProtocolTCPDuplex:  NewStreamConstructor(types.ProtocolTCPDuplex, opts),
		types.ProtocolTCP:        NewStreamConstructor(types.ProtocolTCP, opts),
		types.ProtocolGenuineTCP: NewStreamConstructor(types.ProtocolGenuineTCP, opts),
		types.ProtocolGenuineUDP: NewDatagramConstructor(opts),
	}
}

// For 返回协议对应的构造函数
func (c Constructors) For(protocol types.ProtocolID) (pkgif.ChannelConstructor, error) {
	ctor, ok := c[protocol]
	if !ok || ctor == nil {
		return nil, fmt.Errorf("%w: no channel constructor for %s", types.ErrNoChannelConstructor, protocol)
	}
	return ctor, nil
}

// NewStreamConstructor 返回创建 StreamChannel 的构造函数
func NewStreamConstructor(protocol types.ProtocolID, opts Options) pkgif.ChannelConstructor {
	return func(settings types.Settings, client, server pkgif.Pipeline) (pkgif.Channel, error) {
		ch, err := NewStreamChannel(protocol, settings, client, server, opts)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// NewDatagramConstructor 返回创建 DatagramChannel 的构造函数
func NewDatagramConstructor(opts Options) pkgif.ChannelConstructor {
	return func(settings types.Settings, client, server pkgif.Pipeline) (pkgif.Channel, error) {
		ch, err := NewDatagramChannel(settings, client, server, opts)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}
