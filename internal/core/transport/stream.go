package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-remoting/config"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// ============================================================================
//                              StreamChannel 实现
// ============================================================================

// StreamChannel 基于 TCP 的通道（tcpex、tcp、gtcp）
type StreamChannel struct {
	*channel

	bind string
	port int

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	closed atomic.Bool
}

var (
	_ pkgif.Channel           = (*StreamChannel)(nil)
	_ pkgif.ParameterProvider = (*StreamChannel)(nil)
	_ pkgif.Invoker           = (*StreamChannel)(nil)
	_ pkgif.Listener          = (*StreamChannel)(nil)
)

// NewStreamChannel 按参数表创建 TCP 通道，此时不监听
func NewStreamChannel(protocol types.ProtocolID, settings types.Settings, client, server pkgif.Pipeline, opts Options) (*StreamChannel, error) {
	base, err := newChannel(protocol, settings, client, server, opts)
	if err != nil {
		return nil, err
	}
	bind := settings.String(types.SettingInterface)
	if bind == "" {
		bind = config.DefaultBindAddress
	}
	return &StreamChannel{
		channel: base,
		bind:    bind,
		port:    settings.Int(types.SettingPort),
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Start 开始监听
func (s *StreamChannel) Start(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrChannelClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.bind, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.name, err)
	}
	s.listener = ln

	serveCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.acceptLoop(serveCtx, ln)

	logger.Info("通道开始监听", "channel", s.name, "protocol", s.protocol, "addr", ln.Addr())
	return nil
}

// Addr 返回监听地址，未启动时返回 nil
func (s *StreamChannel) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *StreamChannel) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.closed.Load() {
				logger.Warn("接受连接失败", "channel", s.name, "err", err)
			}
			return
		}

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serveConn(ctx, conn)
	}
}

// serveConn 顺序处理一个连接上的请求
func (s *StreamChannel) serveConn(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	r := bufio.NewReader(conn)
	for {
		frame, err := readFrame(r, s.limit())
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				logger.Debug("读取请求失败", "channel", s.name, "peer", conn.RemoteAddr(), "err", err)
			}
			return
		}
		s.recordIn(len(frame))

		resp := s.serve(ctx, frame, conn.RemoteAddr())
		n, err := writeFrame(conn, resp)
		if err != nil {
			logger.Debug("发送响应失败", "channel", s.name, "peer", conn.RemoteAddr(), "err", err)
			return
		}
		s.recordOut(n)
	}
}

// Call 向 rawURL 指向的服务端发起一次请求
//
// 拨号失败按 connectionAttempts 重试；整个调用受调用超时约束。
// 需要会话密钥时先在同一连接上交换公钥。
func (s *StreamChannel) Call(ctx context.Context, rawURL string, payload any) (*types.Message, error) {
	if s.closed.Load() {
		return nil, types.ErrChannelClosed
	}
	addr, err := s.target(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.InvocationTimeout())
	defer cancel()

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	r := bufio.NewReader(conn)
	rt := func(frame []byte) ([]byte, error) {
		n, err := writeFrame(conn, frame)
		if err != nil {
			return nil, fmt.Errorf("send to %s: %w", addr, err)
		}
		s.recordOut(n)

		reply, err := readFrame(r, s.limit())
		if err != nil {
			return nil, fmt.Errorf("receive from %s: %w", addr, err)
		}
		s.recordIn(len(reply))
		return reply, nil
	}

	ctx, public, err := s.handshake(ctx, rt)
	if err != nil {
		return nil, err
	}
	frame, err := s.prepare(ctx, payload, public)
	if err != nil {
		return nil, err
	}
	reply, err := rt(frame)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, reply, conn.RemoteAddr())
}

func (s *StreamChannel) dial(ctx context.Context, addr string) (net.Conn, error) {
	var conn net.Conn
	attempt := 0
	err := s.retry(ctx, func() error {
		attempt++
		d := net.Dialer{Timeout: s.opts.DialTimeout}
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			logger.Debug("拨号失败", "channel", s.name, "addr", addr, "attempt", attempt, "err", err)
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s (%d attempt(s)): %w", addr, attempt, err)
	}
	return conn, nil
}

// Close 停止监听并关闭所有连接
func (s *StreamChannel) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	var err error
	if s.listener != nil {
		err = multierr.Append(err, s.listener.Close())
		s.cancel()
	}
	for conn := range s.conns {
		err = multierr.Append(err, conn.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.Debug("通道已关闭", "channel", s.name)
	return err
}
