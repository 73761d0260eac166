package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// maxDatagram 单个 UDP 数据报的最大负载
const maxDatagram = 65507

// ============================================================================
//                              DatagramChannel 实现
// ============================================================================

// DatagramChannel 基于 UDP 的通道（gudp）
//
// 一个数据报承载一帧，请求与响应一一对应；帧大小始终受 maxDatagram 约束。
type DatagramChannel struct {
	*channel

	bind string
	port int

	mu     sync.Mutex
	conn   net.PacketConn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed atomic.Bool
}

var (
	_ pkgif.Channel           = (*DatagramChannel)(nil)
	_ pkgif.ParameterProvider = (*DatagramChannel)(nil)
	_ pkgif.Invoker           = (*DatagramChannel)(nil)
	_ pkgif.Listener          = (*DatagramChannel)(nil)
)

// NewDatagramChannel 按参数表创建 UDP 通道，此时不监听
func NewDatagramChannel(settings types.Settings, client, server pkgif.Pipeline, opts Options) (*DatagramChannel, error) {
	base, err := newChannel(types.ProtocolGenuineUDP, settings, client, server, opts)
	if err != nil {
		return nil, err
	}
	return &DatagramChannel{
		channel: base,
		bind:    datagramBind(settings.String(types.SettingAddress)),
		port:    settings.Int(types.SettingPort),
	}, nil
}

// datagramBind 从 gudp://<addr> 形式的绑定参数中取出地址
func datagramBind(raw string) string {
	prefix := types.ProtocolGenuineUDP.SchemePrefix()
	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		raw = raw[len(prefix):]
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if raw == "" {
		return config.DefaultBindAddress
	}
	return raw
}

// limit 数据报通道的帧上限
func (d *DatagramChannel) limit() int {
	if l := d.channel.limit(); l > 0 && l < maxDatagram {
		return l
	}
	return maxDatagram
}

// Start 开始监听
func (d *DatagramChannel) Start(ctx context.Context) error {
	if d.closed.Load() {
		return types.ErrChannelClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(d.bind, strconv.Itoa(d.port)))
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.name, err)
	}
	d.conn = conn

	serveCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.readLoop(serveCtx, conn)

	logger.Info("通道开始监听", "channel", d.name, "protocol", d.protocol, "addr", conn.LocalAddr())
	return nil
}

// Addr 返回监听地址，未启动时返回 nil
func (d *DatagramChannel) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	return d.conn.LocalAddr()
}

func (d *DatagramChannel) readLoop(ctx context.Context, conn net.PacketConn) {
	defer d.wg.Done()
	buf := make([]byte, maxDatagram)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if d.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("读取数据报失败", "channel", d.name, "err", err)
			continue
		}
		d.recordIn(n)
		if n > d.limit() {
			logger.Debug("丢弃超限数据报", "channel", d.name, "peer", peer, "size", n)
			continue
		}

		frame := append([]byte(nil), buf[:n]...)
		resp := d.serve(ctx, frame, peer)
		if err := checkSize(resp, maxDatagram); err != nil {
			logger.Warn("响应超出数据报上限", "channel", d.name, "peer", peer, "err", err)
			resp = encodeFrame(&types.Message{Headers: map[string]string{headerError: err.Error()}})
		}
		if _, err := conn.WriteTo(resp, peer); err != nil {
			logger.Debug("发送响应失败", "channel", d.name, "peer", peer, "err", err)
			continue
		}
		d.recordOut(len(resp))
	}
}

// Call 向 rawURL 指向的服务端发起一次请求
//
// 每次尝试发送请求并在 DialTimeout 内等待响应，超时后按 connectionAttempts 重发。
// 需要会话密钥时先以一对数据报交换公钥，服务端不保存会话状态。
func (d *DatagramChannel) Call(ctx context.Context, rawURL string, payload any) (*types.Message, error) {
	if d.closed.Load() {
		return nil, types.ErrChannelClosed
	}
	addr, err := d.target(rawURL)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.InvocationTimeout())
	defer cancel()

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(d.bind, "0"))
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", d.bind, err)
	}
	defer conn.Close()

	ctx, public, err := d.handshake(ctx, func(frame []byte) ([]byte, error) {
		return d.roundTrip(ctx, conn, raddr, frame, nil)
	})
	if err != nil {
		return nil, err
	}

	req := types.NewMessage(payload)
	if err := d.client.Outbound(ctx, req); err != nil {
		return nil, err
	}
	if public != "" {
		req.SetHeader(types.HeaderKeyExchange, public)
	}
	frame := encodeFrame(req)
	if err := checkSize(frame, d.limit()); err != nil {
		return nil, err
	}

	// 握手请求被重发时，迟到的握手响应不能当作调用响应
	reply, err := d.roundTrip(ctx, conn, raddr, frame, func(reply []byte) bool {
		msg, err := decodeFrame(reply)
		return err != nil || !isKeyExchange(msg)
	})
	if err != nil {
		return nil, err
	}
	return d.complete(ctx, reply, raddr)
}

// roundTrip 发送一帧并等待来自 raddr 的响应，超时后按 connectionAttempts 重发
//
// accept 非 nil 时丢弃它拒绝的数据报。
func (d *DatagramChannel) roundTrip(ctx context.Context, conn net.PacketConn, raddr *net.UDPAddr, frame []byte, accept func([]byte) bool) ([]byte, error) {
	var reply []byte
	attempt := 0
	err := d.retry(ctx, func() error {
		attempt++
		if _, err := conn.WriteTo(frame, raddr); err != nil {
			return err
		}
		d.recordOut(len(frame))

		deadline := time.Now().Add(d.opts.DialTimeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		_ = conn.SetReadDeadline(deadline)

		buf := make([]byte, maxDatagram)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				logger.Debug("等待响应失败", "channel", d.name, "addr", raddr, "attempt", attempt, "err", err)
				return err
			}
			// 忽略非目标地址发来的数据报
			if !sameEndpoint(from, raddr) {
				continue
			}
			d.recordIn(n)
			if accept != nil && !accept(buf[:n]) {
				continue
			}
			reply = append([]byte(nil), buf[:n]...)
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("call %s (%d attempt(s)): %w", raddr, attempt, err)
	}
	return reply, nil
}

// sameEndpoint 比较数据报来源与目标地址
func sameEndpoint(from net.Addr, to *net.UDPAddr) bool {
	u, ok := from.(*net.UDPAddr)
	if !ok {
		return false
	}
	if u.Port != to.Port {
		return false
	}
	// 目标为未指定地址时任何来源都可接受
	return to.IP.IsUnspecified() || u.IP.Equal(to.IP)
}

// Close 停止监听
func (d *DatagramChannel) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.mu.Lock()
	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()
	logger.Debug("通道已关闭", "channel", d.name)
	return err
}
