package setup

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-remoting/pkg/types"
)

// protocol 协议差异描述
type protocol struct {
	id types.ProtocolID

	// clientType 客户端配置类型名，用作客户端通道名前缀
	clientType string

	// bindKey 绑定地址在参数表中的键
	bindKey string

	// schemeBind 绑定地址需写成 <scheme>://<addr> 形式
	schemeBind bool

	// noSizeCheckClient/noSizeCheckServer 该侧通道构造后关闭大小检查
	noSizeCheckClient bool
	noSizeCheckServer bool
}

var protocols = map[types.ProtocolID]protocol{
	types.ProtocolTCPDuplex: {
		id:         types.ProtocolTCPDuplex,
		clientType: "TcpDuplexClientProtocolSetup",
		bindKey:    types.SettingInterface,
	},
	types.ProtocolTCP: {
		id:         types.ProtocolTCP,
		clientType: "TcpCustomClientProtocolSetup",
		bindKey:    types.SettingInterface,
	},
	types.ProtocolGenuineTCP: {
		id:                types.ProtocolGenuineTCP,
		clientType:        "GenuineTcpClientProtocolSetup",
		bindKey:           types.SettingInterface,
		noSizeCheckClient: true,
		noSizeCheckServer: true,
	},
	types.ProtocolGenuineUDP: {
		id:                types.ProtocolGenuineUDP,
		clientType:        "GenuineUdpClientProtocolSetup",
		bindKey:           types.SettingAddress,
		schemeBind:        true,
		noSizeCheckServer: true,
	},
}

// lookupProtocol 查找协议描述
func lookupProtocol(id types.ProtocolID) (protocol, error) {
	p, ok := protocols[id]
	if !ok {
		return protocol{}, fmt.Errorf("%w: %s", types.ErrUnsupportedProtocol, id)
	}
	return p, nil
}

// noSizeCheck 报告该侧是否关闭大小检查
func (p protocol) noSizeCheck(side types.Side) bool {
	if side == types.SideServer {
		return p.noSizeCheckServer
	}
	return p.noSizeCheckClient
}

// bindValue 返回写入参数表的绑定地址
//
// gudp 要求 gudp://<addr> 形式；调用方已带前缀（大小写不敏感）时不重复添加。
func (p protocol) bindValue(addr string) string {
	if !p.schemeBind {
		return addr
	}
	prefix := p.id.SchemePrefix()
	if len(addr) >= len(prefix) && strings.EqualFold(addr[:len(prefix)], prefix) {
		return addr
	}
	return prefix + addr
}
