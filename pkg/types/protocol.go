package types

// ProtocolID 线协议标识，同时也是 URL scheme
type ProtocolID string

// 内置协议
const (
	// ProtocolTCPDuplex 双工 TCP（回调走同一逻辑连接）
	ProtocolTCPDuplex ProtocolID = "tcpex"

	// ProtocolTCP 普通 TCP
	ProtocolTCP ProtocolID = "tcp"

	// ProtocolGenuineTCP Genuine TCP
	ProtocolGenuineTCP ProtocolID = "gtcp"

	// ProtocolGenuineUDP Genuine UDP
	ProtocolGenuineUDP ProtocolID = "gudp"
)

// String 返回协议标识字符串
func (p ProtocolID) String() string {
	return string(p)
}

// Scheme 返回 URL scheme
func (p ProtocolID) Scheme() string {
	return string(p)
}

// SchemePrefix 返回 "<scheme>://"
func (p ProtocolID) SchemePrefix() string {
	return string(p) + "://"
}

// Datagram 报告协议是否基于数据报
func (p ProtocolID) Datagram() bool {
	return p == ProtocolGenuineUDP
}
