package transport

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/clientaddr"
	"github.com/dep2p/go-remoting/internal/core/crypt"
	"github.com/dep2p/go-remoting/internal/core/pipeline"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func testOptions() Options {
	opts := DefaultOptions()
	opts.DialTimeout = 200 * time.Millisecond
	opts.DialBackoff = 10 * time.Millisecond
	return opts
}

func pipelines(t *testing.T, opts pipeline.Options) (client, server pkgif.Pipeline) {
	t.Helper()
	c, s, err := pipeline.NewBuilder(pipeline.StageFactories{}).BuildPair(opts)
	require.NoError(t, err)
	return c, s
}

func encrypted() pipeline.Options {
	return pipeline.Options{
		Versioning: types.VersioningStrict,
		Encryption: true,
		Algorithm:  config.AlgorithmAESGCM,
		Secret:     []byte("shared secret"),
	}
}

// negotiated 开启加密但不给预共享密钥，由通道协商会话密钥
func negotiated() pipeline.Options {
	return pipeline.Options{
		Versioning: types.VersioningStrict,
		Encryption: true,
	}
}

// echo 返回请求负载，并记录调用方地址
func echo(seen *atomic.Value) Handler {
	return func(_ context.Context, req *types.Message) (*types.Message, error) {
		if addr, ok := clientaddr.FromMessage(req); ok {
			seen.Store(addr.String())
		}
		return types.NewMessage(req.Payload), nil
	}
}

func startStream(t *testing.T, protocol types.ProtocolID, popts pipeline.Options, opts Options, h Handler) (*StreamChannel, string) {
	t.Helper()
	client, server := pipelines(t, popts)
	ch, err := NewStreamChannel(protocol, types.Settings{
		types.SettingName:      string(protocol) + "-server",
		types.SettingInterface: "127.0.0.1",
		types.SettingPort:      0,
	}, client, server, opts)
	require.NoError(t, err)
	ch.SetHandler(h)
	require.NoError(t, ch.Start(context.Background()))
	t.Cleanup(func() { _ = ch.Close() })

	port := ch.Addr().(*net.TCPAddr).Port
	return ch, protocol.SchemePrefix() + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/Echo"
}

func newStreamClient(t *testing.T, protocol types.ProtocolID, popts pipeline.Options, opts Options, attempts int) *StreamChannel {
	t.Helper()
	client, server := pipelines(t, popts)
	ch, err := NewStreamChannel(protocol, types.Settings{
		types.SettingName:               string(protocol) + "-client",
		types.SettingPort:               0,
		types.SettingConnectionAttempts: attempts,
	}, client, server, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

// ============================================================================
//                              StreamChannel
// ============================================================================

func TestStream_EncryptedRoundTrip(t *testing.T) {
	var seen atomic.Value
	_, url := startStream(t, types.ProtocolTCP, encrypted(), testOptions(), echo(&seen))
	client := newStreamClient(t, types.ProtocolTCP, encrypted(), testOptions(), 1)

	for i := 0; i < 3; i++ {
		resp, err := client.Call(context.Background(), url, wrapperspb.String("HostA"))
		require.NoError(t, err)
		assert.True(t, proto.Equal(wrapperspb.String("HostA"), resp.Payload.(proto.Message)))
		// 解密后加密头已移除
		assert.Empty(t, resp.Header(types.HeaderEncryption))
	}
	assert.Equal(t, "127.0.0.1", seen.Load())

	t.Log("✅ 加密通道往返成功，服务端记录调用方地址")
}

func TestStream_NegotiatedKeyRoundTrip(t *testing.T) {
	var headers atomic.Value
	_, url := startStream(t, types.ProtocolGenuineTCP, negotiated(), testOptions(),
		func(_ context.Context, req *types.Message) (*types.Message, error) {
			headers.Store(req.Headers)
			return types.NewMessage(req.Payload), nil
		})
	client := newStreamClient(t, types.ProtocolGenuineTCP, negotiated(), testOptions(), 1)
	assert.True(t, client.negotiate)

	for i := 0; i < 3; i++ {
		resp, err := client.Call(context.Background(), url, wrapperspb.String("HostA"))
		require.NoError(t, err)
		assert.True(t, proto.Equal(wrapperspb.String("HostA"), resp.Payload.(proto.Message)))
		assert.Empty(t, resp.Header(types.HeaderKeyExchange))
	}
	seen := headers.Load().(map[string]string)
	assert.NotContains(t, seen, types.HeaderKeyExchange)
	assert.NotContains(t, seen, types.HeaderEncryption)

	t.Log("✅ 无预共享密钥时协商会话密钥完成加密往返")
}

func TestStream_NegotiatedAgainstPlainServer(t *testing.T) {
	var seen atomic.Value
	_, url := startStream(t, types.ProtocolTCP, pipeline.Options{Versioning: types.VersioningStrict}, testOptions(), echo(&seen))
	client := newStreamClient(t, types.ProtocolTCP, negotiated(), testOptions(), 1)

	// 未加密的服务端同样应答握手，但无法解析密文请求
	_, err := client.Call(context.Background(), url, wrapperspb.String("x"))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Nil(t, seen.Load())
}

func TestServe_KeyExchange(t *testing.T) {
	ch, _ := startStream(t, types.ProtocolTCP, negotiated(), testOptions(), echo(new(atomic.Value)))
	peer := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}

	eph, err := crypt.GenerateKeyPair()
	require.NoError(t, err)
	hello := encodeFrame(&types.Message{Headers: map[string]string{types.HeaderKeyExchange: eph.Public()}})
	reply, err := decodeFrame(ch.serve(context.Background(), hello, peer))
	require.NoError(t, err)
	assert.Equal(t, ch.keys.Public(), reply.Header(types.HeaderKeyExchange))
	assert.Empty(t, reply.Headers[headerError])

	bad := encodeFrame(&types.Message{Headers: map[string]string{types.HeaderKeyExchange: "not a key"}})
	reply, err = decodeFrame(ch.serve(context.Background(), bad, peer))
	require.NoError(t, err)
	assert.Contains(t, reply.Headers[headerError], crypt.ErrKeyExchange.Error())

	t.Log("✅ 服务端应答握手并拒绝无效公钥")
}

func TestStream_Compressed(t *testing.T) {
	popts := pipeline.Options{
		Versioning:  types.VersioningTolerant,
		Compression: config.CompressionConfig{Method: config.CompressionS2},
	}
	var seen atomic.Value
	_, url := startStream(t, types.ProtocolTCPDuplex, popts, testOptions(), echo(&seen))
	client := newStreamClient(t, types.ProtocolTCPDuplex, popts, testOptions(), 1)

	big := wrapperspb.String(strings.Repeat("HostA", 2000))
	resp, err := client.Call(context.Background(), url, big)
	require.NoError(t, err)
	assert.True(t, proto.Equal(big, resp.Payload.(proto.Message)))
}

func TestStream_NilResponse(t *testing.T) {
	_, url := startStream(t, types.ProtocolGenuineTCP, pipeline.Options{}, testOptions(),
		func(context.Context, *types.Message) (*types.Message, error) { return nil, nil })
	client := newStreamClient(t, types.ProtocolGenuineTCP, pipeline.Options{}, testOptions(), 1)

	resp, err := client.Call(context.Background(), url, wrapperspb.Int32(7))
	require.NoError(t, err)
	assert.IsType(t, &emptypb.Empty{}, resp.Payload)
}

func TestStream_RemoteError(t *testing.T) {
	_, url := startStream(t, types.ProtocolTCP, pipeline.Options{}, testOptions(), nil)
	client := newStreamClient(t, types.ProtocolTCP, pipeline.Options{}, testOptions(), 1)

	_, err := client.Call(context.Background(), url, wrapperspb.Int32(1))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), ErrNoHandler.Error())
}

func TestStream_EncryptionMismatch(t *testing.T) {
	var seen atomic.Value
	_, url := startStream(t, types.ProtocolTCP, encrypted(), testOptions(), echo(&seen))

	other := encrypted()
	other.Secret = []byte("another secret")
	client := newStreamClient(t, types.ProtocolTCP, other, testOptions(), 1)

	_, err := client.Call(context.Background(), url, wrapperspb.String("x"))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Nil(t, seen.Load())
}

func TestStream_SizeChecking(t *testing.T) {
	opts := testOptions()
	opts.MaxMessageSize = 256

	var seen atomic.Value
	server, url := startStream(t, types.ProtocolTCP, pipeline.Options{}, opts, echo(&seen))
	client := newStreamClient(t, types.ProtocolTCP, pipeline.Options{}, opts, 1)
	assert.True(t, client.SizeChecking())

	big := wrapperspb.String(strings.Repeat("x", 1024))
	_, err := client.Call(context.Background(), url, big)
	assert.ErrorIs(t, err, types.ErrMessageTooLarge)

	client.SetSizeChecking(false)
	server.SetSizeChecking(false)
	resp, err := client.Call(context.Background(), url, big)
	require.NoError(t, err)
	assert.True(t, proto.Equal(big, resp.Payload.(proto.Message)))
}

func TestStream_DialRetries(t *testing.T) {
	// 取得一个当前无人监听的端口
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	client := newStreamClient(t, types.ProtocolTCP, pipeline.Options{}, testOptions(), 3)
	_, err = client.Call(context.Background(), "tcp://127.0.0.1:"+strconv.Itoa(port)+"/Echo", wrapperspb.Int32(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 attempt(s)")
}

func TestStream_InvocationTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	_, url := startStream(t, types.ProtocolTCP, pipeline.Options{}, testOptions(),
		func(ctx context.Context, req *types.Message) (*types.Message, error) {
			<-release
			return nil, nil
		})
	client := newStreamClient(t, types.ProtocolTCP, pipeline.Options{}, testOptions(), 1)
	client.SetInvocationTimeout(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, client.InvocationTimeout())

	start := time.Now()
	_, err := client.Call(context.Background(), url, wrapperspb.Int32(1))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestStream_WrongScheme(t *testing.T) {
	client := newStreamClient(t, types.ProtocolTCP, pipeline.Options{}, testOptions(), 1)

	_, err := client.Call(context.Background(), "gtcp://127.0.0.1:9000/Echo", wrapperspb.Int32(1))
	assert.ErrorIs(t, err, ErrWrongScheme)

	_, err = client.Call(context.Background(), "tcp://127.0.0.1/Echo", wrapperspb.Int32(1))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestStream_Lifecycle(t *testing.T) {
	client, server := pipelines(t, pipeline.Options{})
	ch, err := NewStreamChannel(types.ProtocolTCP, types.Settings{
		types.SettingName:      "lifecycle",
		types.SettingInterface: "127.0.0.1",
	}, client, server, testOptions())
	require.NoError(t, err)
	assert.Nil(t, ch.Addr())

	require.NoError(t, ch.Start(context.Background()))
	assert.ErrorIs(t, ch.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Start(context.Background()), types.ErrChannelClosed)
	_, err = ch.Call(context.Background(), "tcp://127.0.0.1:1/x", nil)
	assert.ErrorIs(t, err, types.ErrChannelClosed)
}

func TestNewChannel_Invalid(t *testing.T) {
	client, server := pipelines(t, pipeline.Options{})

	_, err := NewStreamChannel(types.ProtocolTCP, types.Settings{}, client, server, testOptions())
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = NewDatagramChannel(types.Settings{types.SettingName: "x"}, nil, server, testOptions())
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestNewChannel_Settings(t *testing.T) {
	client, server := pipelines(t, pipeline.Options{})
	ch, err := NewStreamChannel(types.ProtocolGenuineTCP, types.Settings{
		types.SettingName:              "gtcp-server@0.0.0.0:9000",
		types.SettingInvocationTimeout: 3 * time.Second,
		types.SettingNoSizeChecking:    true,
	}, client, server, testOptions())
	require.NoError(t, err)

	assert.Equal(t, "gtcp-server@0.0.0.0:9000", ch.Name())
	assert.Equal(t, types.ProtocolGenuineTCP, ch.Protocol())
	assert.Equal(t, 3*time.Second, ch.InvocationTimeout())
	assert.False(t, ch.SizeChecking())
	assert.Equal(t, config.DefaultBindAddress, ch.bind)
	assert.Equal(t, 1, ch.attempts)

	ch.SetInvocationTimeout(0)
	assert.Equal(t, types.UnboundedTimeout, ch.InvocationTimeout())
}

// ============================================================================
//                              DatagramChannel
// ============================================================================

func startDatagram(t *testing.T, popts pipeline.Options, h Handler) (*DatagramChannel, string) {
	t.Helper()
	client, server := pipelines(t, popts)
	ch, err := NewDatagramChannel(types.Settings{
		types.SettingName:    "gudp-server",
		types.SettingAddress: "gudp://127.0.0.1",
		types.SettingPort:    0,
	}, client, server, testOptions())
	require.NoError(t, err)
	ch.SetHandler(h)
	require.NoError(t, ch.Start(context.Background()))
	t.Cleanup(func() { _ = ch.Close() })

	port := ch.Addr().(*net.UDPAddr).Port
	return ch, "gudp://127.0.0.1:" + strconv.Itoa(port) + "/Echo"
}

func newDatagramClient(t *testing.T, popts pipeline.Options, attempts int) *DatagramChannel {
	t.Helper()
	client, server := pipelines(t, popts)
	ch, err := NewDatagramChannel(types.Settings{
		types.SettingName:               "GenuineUdpClientProtocolSetup-test",
		types.SettingAddress:            "GUDP://127.0.0.1",
		types.SettingConnectionAttempts: attempts,
	}, client, server, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestDatagram_RoundTrip(t *testing.T) {
	var seen atomic.Value
	_, url := startDatagram(t, encrypted(), echo(&seen))
	client := newDatagramClient(t, encrypted(), 1)

	resp, err := client.Call(context.Background(), url, wrapperspb.String("HostA"))
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("HostA"), resp.Payload.(proto.Message)))
	assert.Equal(t, "127.0.0.1", seen.Load())

	t.Log("✅ 数据报通道往返成功")
}

func TestDatagram_NegotiatedKeyRoundTrip(t *testing.T) {
	var seen atomic.Value
	_, url := startDatagram(t, negotiated(), echo(&seen))
	client := newDatagramClient(t, negotiated(), 1)

	for i := 0; i < 2; i++ {
		resp, err := client.Call(context.Background(), url, wrapperspb.String("HostA"))
		require.NoError(t, err)
		assert.True(t, proto.Equal(wrapperspb.String("HostA"), resp.Payload.(proto.Message)))
	}
	assert.Equal(t, "127.0.0.1", seen.Load())

	t.Log("✅ 数据报通道协商会话密钥后往返成功")
}

func TestDatagram_Retries(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	defer conn.Close()

	// 对端收包但从不应答
	client := newDatagramClient(t, pipeline.Options{}, 2)
	_, err = client.Call(context.Background(), "gudp://127.0.0.1:"+strconv.Itoa(port)+"/Echo", wrapperspb.Int32(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 attempt(s)")
}

func TestDatagram_TooLarge(t *testing.T) {
	client := newDatagramClient(t, pipeline.Options{}, 1)
	client.SetSizeChecking(false)

	big := wrapperspb.String(strings.Repeat("x", maxDatagram))
	_, err := client.Call(context.Background(), "gudp://127.0.0.1:9/Echo", big)
	assert.ErrorIs(t, err, types.ErrMessageTooLarge)
}

func TestDatagramBind(t *testing.T) {
	cases := map[string]string{
		"gudp://0.0.0.0":   "0.0.0.0",
		"GUDP://127.0.0.1": "127.0.0.1",
		"gudp://[::1]":     "::1",
		"10.0.0.1":         "10.0.0.1",
		"":                 config.DefaultBindAddress,
		"gudp://":          config.DefaultBindAddress,
	}
	for in, want := range cases {
		assert.Equal(t, want, datagramBind(in), in)
	}
}

// ============================================================================
//                              构造函数与模块
// ============================================================================

func TestConstructors(t *testing.T) {
	ctors := NewConstructors(testOptions())
	client, server := pipelines(t, pipeline.Options{})

	for _, id := range []types.ProtocolID{
		types.ProtocolTCPDuplex, types.ProtocolTCP, types.ProtocolGenuineTCP, types.ProtocolGenuineUDP,
	} {
		ctor, err := ctors.For(id)
		require.NoError(t, err, id)

		ch, err := ctor(types.Settings{types.SettingName: "c-" + string(id)}, client, server)
		require.NoError(t, err, id)
		assert.Equal(t, "c-"+string(id), ch.Name())
		assert.Implements(t, (*pkgif.ParameterProvider)(nil), ch)
		if id.Datagram() {
			assert.IsType(t, &DatagramChannel{}, ch)
		} else {
			assert.IsType(t, &StreamChannel{}, ch)
		}
	}

	_, err := ctors.For("ipc")
	assert.ErrorIs(t, err, types.ErrNoChannelConstructor)
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Transport.MaxMessageSize = 1024

	var (
		opts  Options
		ctors Constructors
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&opts, &ctors),
	)
	defer app.RequireStart().RequireStop()

	assert.Equal(t, 1024, opts.MaxMessageSize)
	assert.Len(t, ctors, 4)
}
