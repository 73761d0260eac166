package setup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/types"
)

func TestServer_Port(t *testing.T) {
	s, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{}, WithPort(9000))...)
	require.NoError(t, err)
	assert.Equal(t, 9000, s.TCPPort())

	for _, bad := range []int{-1, 65536, 1 << 20} {
		err := s.SetTCPPort(bad)
		assert.ErrorIs(t, err, types.ErrPortOutOfRange)
		assert.Contains(t, err.Error(), "tcpPort")
		assert.Equal(t, 9000, s.TCPPort(), "非法端口不改变原值")
	}

	require.NoError(t, s.SetTCPPort(0))
	assert.Equal(t, 0, s.TCPPort())
	require.NoError(t, s.SetTCPPort(65535))
	assert.Equal(t, 65535, s.TCPPort())

	t.Log("✅ 端口设置时校验")
}

func TestServer_Defaults(t *testing.T) {
	s, err := NewServer(types.ProtocolTCPDuplex, testOpts(&recorder{})...)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", s.IPAddress())
	assert.Equal(t, types.VersioningStrict, s.Versioning())
	assert.False(t, s.Encryption())
	assert.Nil(t, s.AuthenticationProvider())

	auth := pkgif.AuthenticationFunc(func(context.Context, map[string]string) error { return nil })
	s.SetAuthenticationProvider(auth)
	assert.NotNil(t, s.AuthenticationProvider())

	s.SetIPAddress("127.0.0.1")
	assert.Equal(t, "127.0.0.1", s.IPAddress())
}

func TestServer_Name(t *testing.T) {
	s, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{}, WithPort(9000))...)
	require.NoError(t, err)
	assert.Equal(t, "gtcp-server@0.0.0.0:9000", s.Name())

	s.SetIPAddress("::")
	assert.Equal(t, "gtcp-server@[::]:9000", s.Name())

	// 临时端口的服务端互不冲突
	a, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{})...)
	require.NoError(t, err)
	b, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{})...)
	require.NoError(t, err)
	assert.NotEqual(t, a.Name(), b.Name())
	assert.Contains(t, a.Name(), "gtcp-server@0.0.0.0:0-")
}

func TestServer_CreateChannel(t *testing.T) {
	cases := []struct {
		id          types.ProtocolID
		bindKey     string
		bindValue   string
		sizeChecked bool
	}{
		{types.ProtocolTCPDuplex, types.SettingInterface, "0.0.0.0", true},
		{types.ProtocolTCP, types.SettingInterface, "0.0.0.0", true},
		{types.ProtocolGenuineTCP, types.SettingInterface, "0.0.0.0", false},
		{types.ProtocolGenuineUDP, types.SettingAddress, "gudp://0.0.0.0", false},
	}
	for _, tc := range cases {
		t.Run(tc.id.String(), func(t *testing.T) {
			r := &recorder{}
			s, err := NewServer(tc.id, testOpts(r, WithPort(9000))...)
			require.NoError(t, err)

			h, err := s.CreateChannel(context.Background())
			require.NoError(t, err)

			assert.Equal(t, s.Name(), h.Name)
			assert.Equal(t, 9000, h.Settings.Int(types.SettingPort))
			assert.Equal(t, tc.bindValue, h.Settings.String(tc.bindKey))
			assert.Equal(t, "full", h.Settings.String(types.SettingTypeFilterLevel))
			assert.Equal(t, types.UnboundedTimeout, h.Settings.Duration(types.SettingInvocationTimeout))
			assert.Equal(t, types.UnboundedTimeout, h.Settings.Duration(types.SettingConnectTimeout))

			ch := h.Channel.(*fakeChannel)
			assert.Equal(t, types.UnboundedTimeout, ch.timeout)
			assert.Equal(t, tc.sizeChecked, ch.sizeChecked)
			assert.Equal(t, []string{"formatter", "clientaddr"}, ch.server.Names())
		})
	}
}

func TestServer_GudpAddressNormalization(t *testing.T) {
	for in, want := range map[string]string{
		"10.0.0.1":        "gudp://10.0.0.1",
		"gudp://10.0.0.1": "gudp://10.0.0.1",
		"GUDP://10.0.0.1": "GUDP://10.0.0.1",
	} {
		s, err := NewServer(types.ProtocolGenuineUDP, testOpts(&recorder{}, WithBindAddress(in), WithPort(9001))...)
		require.NoError(t, err)
		h, err := s.CreateChannel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, h.Settings.String(types.SettingAddress))
		_, hasInterface := h.Settings[types.SettingInterface]
		assert.False(t, hasInterface)
	}
}

func TestServer_Discoverable(t *testing.T) {
	s, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{}, WithPort(9000))...)
	require.NoError(t, err)

	url := s.DiscoverableURL("HostA")
	assert.Equal(t, "gtcp://192.168.1.20:9000/HostA", url)
	assert.True(t, s.IsDiscoverableURL(url))

	assert.True(t, s.IsDiscoverableURL("gtcp://127.0.0.1:9000/HostA"))
	assert.False(t, s.IsDiscoverableURL("gtcp://10.9.9.9:9000/HostA"), "非本机地址")
	assert.False(t, s.IsDiscoverableURL("gtcp://8f3a2c1e-channel:9000/HostA"), "基于通道标识的 URL")
	assert.False(t, s.IsDiscoverableURL("gudp://127.0.0.1:9000/HostA"), "协议不符")
	assert.False(t, s.IsDiscoverableURL("gtcp://127.0.0.1/HostA"), "语法不符")

	t.Log("✅ 可发现 URL 只接受本机地址")
}

func TestServer_DiscoverableEphemeralPort(t *testing.T) {
	s, err := NewServer(types.ProtocolGenuineTCP, testOpts(&recorder{}, WithPort(0))...)
	require.NoError(t, err)
	require.Zero(t, s.TCPPort())

	url := s.DiscoverableURL("HostA")
	assert.Equal(t, "gtcp://192.168.1.20:0/HostA", url)
	assert.False(t, s.IsDiscoverableURL(url), "端口 0 不可回调")
	assert.False(t, s.IsDiscoverableURL("gtcp://127.0.0.1:0/HostA"))

	// 监听后写回实际端口
	require.NoError(t, s.SetTCPPort(41234))
	url = s.DiscoverableURL("HostA")
	assert.Equal(t, "gtcp://192.168.1.20:41234/HostA", url)
	assert.True(t, s.IsDiscoverableURL(url))

	t.Log("✅ 临时端口的 URL 不视为可发现")
}

func TestServer_DiscoverableLoopbackOnly(t *testing.T) {
	loopOnly := fakeAddresses{}
	s, err := NewServer(types.ProtocolGenuineUDP, testOpts(&recorder{}, WithLocalAddresses(loopOnly), WithPort(7000))...)
	require.NoError(t, err)
	assert.Equal(t, "gudp://127.0.0.1:7000/zyan", s.DiscoverableURL("zyan"))
}

func TestServer_CacheHitKeepsFirstConfiguration(t *testing.T) {
	r := &recorder{}
	opts := testOpts(r, WithPort(9000))
	s1, err := NewServer(types.ProtocolGenuineTCP, opts...)
	require.NoError(t, err)
	// 同一注册表、同名服务端，配置不同
	s2, err := NewServer(types.ProtocolGenuineTCP, append(opts, WithEncryption(true), WithSecret([]byte("k")))...)
	require.NoError(t, err)
	require.Equal(t, s1.Name(), s2.Name())

	h1, err := s1.CreateChannel(context.Background())
	require.NoError(t, err)
	h2, err := s2.CreateChannel(context.Background())
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, []string{"formatter", "clientaddr"}, h2.Channel.(*fakeChannel).server.Names())
}
