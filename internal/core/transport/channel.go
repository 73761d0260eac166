package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dep2p/go-remoting/internal/core/crypt"
	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/transport")

// Handler 服务端请求处理函数
type Handler = pkgif.Handler

// channel 两种通道的公共部分
type channel struct {
	name     string
	protocol types.ProtocolID
	client   pkgif.Pipeline
	server   pkgif.Pipeline
	opts     Options
	attempts int

	// keys 服务端长期密钥对；negotiate 表示客户端管道需要会话密钥
	keys      *crypt.KeyPair
	negotiate bool

	timeout     atomic.Int64
	sizeChecked atomic.Bool

	handlerMu sync.RWMutex
	handler   Handler
}

func newChannel(protocol types.ProtocolID, settings types.Settings, client, server pkgif.Pipeline, opts Options) (*channel, error) {
	name := settings.String(types.SettingName)
	if name == "" {
		return nil, fmt.Errorf("%w: %s channel requires a %q setting", types.ErrInvalidArgument, protocol, types.SettingName)
	}
	if client == nil || server == nil {
		return nil, fmt.Errorf("%w: %s channel %q requires client and server pipelines", types.ErrInvalidArgument, protocol, name)
	}
	opts.Reporter = metrics.OrNop(opts.Reporter)
	keys, err := crypt.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	c := &channel{
		name:      name,
		protocol:  protocol,
		client:    client,
		server:    server,
		opts:      opts,
		attempts:  max(settings.Int(types.SettingConnectionAttempts), 1),
		keys:      keys,
		negotiate: crypt.NeedsSessionKey(client),
	}
	timeout := settings.Duration(types.SettingInvocationTimeout)
	if timeout <= 0 {
		timeout = types.UnboundedTimeout
	}
	c.timeout.Store(int64(timeout))
	c.sizeChecked.Store(!settings.Bool(types.SettingNoSizeChecking))
	return c, nil
}

// Name 实现 pkgif.Channel
func (c *channel) Name() string {
	return c.name
}

// Protocol 返回协议标识
func (c *channel) Protocol() types.ProtocolID {
	return c.protocol
}

// SetInvocationTimeout 实现 pkgif.ParameterProvider
func (c *channel) SetInvocationTimeout(d time.Duration) {
	if d <= 0 {
		d = types.UnboundedTimeout
	}
	c.timeout.Store(int64(d))
}

// InvocationTimeout 返回调用超时
func (c *channel) InvocationTimeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// SetSizeChecking 实现 pkgif.ParameterProvider
func (c *channel) SetSizeChecking(enabled bool) {
	c.sizeChecked.Store(enabled)
}

// SizeChecking 报告是否开启大小检查
func (c *channel) SizeChecking() bool {
	return c.sizeChecked.Load()
}

// SetHandler 设置服务端处理函数
func (c *channel) SetHandler(h Handler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

// limit 当前生效的帧上限，0 表示不检查
func (c *channel) limit() int {
	if c.sizeChecked.Load() {
		return c.opts.MaxMessageSize
	}
	return 0
}

// target 解析调用目标 URL，返回 host:port
func (c *channel) target(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	if !strings.EqualFold(u.Scheme, c.protocol.Scheme()) {
		return "", fmt.Errorf("%w: %s channel cannot call %s", ErrWrongScheme, c.protocol, raw)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return "", fmt.Errorf("%w: %s has no host:port", types.ErrInvalidArgument, raw)
	}
	return u.Host, nil
}

// exchange 在已建立的链路上完成一次帧往返
type exchange func(frame []byte) ([]byte, error)

// handshake 客户端管道需要会话密钥时先与服务端交换公钥
//
// 返回携带会话密钥的 ctx 与本端临时公钥；不需要协商时原样返回 ctx。
func (c *channel) handshake(ctx context.Context, rt exchange) (context.Context, string, error) {
	if !c.negotiate {
		return ctx, "", nil
	}
	eph, err := crypt.GenerateKeyPair()
	if err != nil {
		return nil, "", err
	}
	reply, err := rt(encodeFrame(&types.Message{Headers: map[string]string{types.HeaderKeyExchange: eph.Public()}}))
	if err != nil {
		return nil, "", fmt.Errorf("key exchange: %w", err)
	}
	msg, err := decodeFrame(reply)
	if err != nil {
		return nil, "", err
	}
	if remote, ok := msg.Headers[headerError]; ok {
		return nil, "", fmt.Errorf("%w: %s", ErrRemote, remote)
	}
	peer := msg.Header(types.HeaderKeyExchange)
	if peer == "" {
		return nil, "", fmt.Errorf("%w: server sent no public key", crypt.ErrKeyExchange)
	}
	secret, err := eph.SharedSecret(peer)
	if err != nil {
		return nil, "", err
	}
	return crypt.WithSessionSecret(ctx, secret), eph.Public(), nil
}

// isKeyExchange 仅携带公钥的握手帧
func isKeyExchange(msg *types.Message) bool {
	return len(msg.Headers) == 1 && len(msg.Body) == 0 && msg.Header(types.HeaderKeyExchange) != ""
}

// prepare 客户端出站：经客户端管道后编码成帧
//
// public 非空时随请求带上本端临时公钥，服务端据此计算同一会话密钥。
func (c *channel) prepare(ctx context.Context, payload any, public string) ([]byte, error) {
	req := types.NewMessage(payload)
	if err := c.client.Outbound(ctx, req); err != nil {
		return nil, err
	}
	if public != "" {
		req.SetHeader(types.HeaderKeyExchange, public)
	}
	frame := encodeFrame(req)
	if err := checkSize(frame, c.limit()); err != nil {
		return nil, err
	}
	return frame, nil
}

// complete 客户端入站：解码响应帧并经客户端管道处理
func (c *channel) complete(ctx context.Context, frame []byte, peer net.Addr) (*types.Message, error) {
	resp, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	if remote, ok := resp.Headers[headerError]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRemote, remote)
	}
	resp.Peer = peer
	if err := c.client.Inbound(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// serve 服务端处理一帧请求，返回响应帧
//
// 处理失败时响应帧只携带错误头。
func (c *channel) serve(ctx context.Context, frame []byte, peer net.Addr) []byte {
	resp, err := c.dispatch(ctx, frame, peer)
	if err != nil {
		logger.Debug("请求处理失败", "channel", c.name, "peer", peer, "err", err)
		return encodeFrame(&types.Message{Headers: map[string]string{headerError: err.Error()}})
	}
	return encodeFrame(resp)
}

func (c *channel) dispatch(ctx context.Context, frame []byte, peer net.Addr) (*types.Message, error) {
	req, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	req.Peer = peer

	if public, ok := req.Headers[types.HeaderKeyExchange]; ok {
		if isKeyExchange(req) {
			if _, err := c.keys.SharedSecret(public); err != nil {
				return nil, err
			}
			return &types.Message{Headers: map[string]string{types.HeaderKeyExchange: c.keys.Public()}}, nil
		}
		secret, err := c.keys.SharedSecret(public)
		if err != nil {
			return nil, err
		}
		delete(req.Headers, types.HeaderKeyExchange)
		ctx = crypt.WithSessionSecret(ctx, secret)
	}

	if err := c.server.Inbound(ctx, req); err != nil {
		return nil, err
	}

	c.handlerMu.RLock()
	h := c.handler
	c.handlerMu.RUnlock()
	if h == nil {
		return nil, ErrNoHandler
	}

	resp, err := h(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = types.NewMessage(&emptypb.Empty{})
	}
	if err := c.server.Outbound(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// retry 以指数退避重试 op，总尝试次数为 attempts
func (c *channel) retry(ctx context.Context, op backoff.Operation) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.DialBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.attempts-1)), ctx))
}

// recordIn/recordOut 记录字节数
func (c *channel) recordIn(n int) {
	c.opts.Reporter.MessageBytes(c.protocol, metrics.DirectionIn, n)
}

func (c *channel) recordOut(n int) {
	c.opts.Reporter.MessageBytes(c.protocol, metrics.DirectionOut, n)
}
