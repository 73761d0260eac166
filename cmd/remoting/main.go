// Package main 提供 remoting 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	remoting "github.com/dep2p/go-remoting"
	"github.com/dep2p/go-remoting/config"
	"github.com/dep2p/go-remoting/internal/core/clientaddr"
	"github.com/dep2p/go-remoting/internal/core/netaddr"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("remoting/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 公共参数
// ═══════════════════════════════════════════════════════════════════════════

// common 各子命令共用的参数
type common struct {
	configFile string
	protocol   string
	bind       string
	secret     string
	encrypt    bool
	duplex     bool

	set map[string]bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "配置文件路径")
	fs.StringVar(&c.protocol, "protocol", "", "协议名称（tcp/tcpex/gtcp/gudp 及别名）")
	fs.StringVar(&c.bind, "bind", "", "绑定地址")
	fs.StringVar(&c.secret, "secret", "", "加密共享密钥（设置后启用加密）")
	fs.BoolVar(&c.encrypt, "encrypt", false, "启用加密，未给 -secret 时协商会话密钥")
	fs.BoolVar(&c.duplex, "duplex", true, "未指定协议时选择双工 TCP")
}

// load 加载配置
//
// 配置优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值
func (c *common) load(fs *flag.FlagSet) (*config.Config, error) {
	c.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })

	cfg, err := loadConfig(c.configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}
	applyEnvOverrides(cfg)

	if c.set["protocol"] {
		cfg.Protocol.Name = c.protocol
	}
	if c.set["duplex"] {
		cfg.Protocol.Duplex = c.duplex
	}
	if c.set["bind"] {
		cfg.Server.BindAddress = c.bind
		cfg.Client.BindAddress = c.bind
	}
	if c.set["encrypt"] {
		cfg.Protocol.Encryption = c.encrypt
	}
	if c.secret != "" {
		cfg.Protocol.Encryption = true
		cfg.Protocol.EncryptionSecret = []byte(c.secret)
	}
	return cfg, cfg.Validate()
}

func (c *common) factory(cfg *config.Config) (*remoting.Factory, error) {
	return remoting.NewFactory(remoting.WithConfig(cfg))
}

// ═══════════════════════════════════════════════════════════════════════════
// 入口
// ═══════════════════════════════════════════════════════════════════════════

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printHelp()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "addrs":
		return runAddrs(rest)
	case "url":
		return runURL(rest)
	case "check":
		return runCheck(rest)
	case "discoverable":
		return runDiscoverable(rest)
	case "serve":
		return runServe(rest)
	case "call":
		return runCall(rest)
	case "version", "-version", "--version":
		fmt.Println(remoting.VersionInfo())
		return nil
	case "help", "-h", "-help", "--help":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("未知命令: %s", cmd)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 子命令
// ═══════════════════════════════════════════════════════════════════════════

// runAddrs 打印本机可达地址
func runAddrs(args []string) error {
	fs := flag.NewFlagSet("addrs", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}

	d := netaddr.New(netaddr.WithLookupTimeout(cfg.Discovery.LookupTimeout.Duration()))
	for _, a := range d.Strings() {
		fmt.Println(a)
	}
	fmt.Printf("best: %s\n", d.Best())
	if err := d.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "警告: %v\n", err)
	}
	return nil
}

// runURL 生成 <scheme>://<host>:<port>/<name>
func runURL(args []string) error {
	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("%w: usage: remoting url [flags] <host> <port> <name>", types.ErrInvalidArgument)
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}
	f, err := c.factory(cfg)
	if err != nil {
		return err
	}

	cli, err := f.ConfiguredClient()
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("%w: port %q", types.ErrInvalidArgument, fs.Arg(1))
	}
	url, err := cli.FormatURL(fs.Arg(0), port, fs.Arg(2))
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

// runCheck 校验 URL 是否属于所选协议
func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: remoting check [flags] <url>", types.ErrInvalidArgument)
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}
	f, err := c.factory(cfg)
	if err != nil {
		return err
	}

	cli, err := f.ConfiguredClient()
	if err != nil {
		return err
	}
	valid := cli.IsURLValid(fs.Arg(0))
	fmt.Printf("%s %s: %v\n", cli.Protocol(), fs.Arg(0), valid)
	if !valid {
		os.Exit(2)
	}
	return nil
}

// runDiscoverable 打印回调 URL，或校验给定 URL 是否指向本机
func runDiscoverable(args []string) error {
	fs := flag.NewFlagSet("discoverable", flag.ContinueOnError)
	var c common
	c.register(fs)
	port := fs.Int("port", 0, "服务端端口")
	name := fs.String("name", "", "远端名称（打印回调 URL）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}
	if isSet(fs, "port") {
		cfg.Server.Port = *port
	}
	f, err := c.factory(cfg)
	if err != nil {
		return err
	}

	srv, err := f.ConfiguredServer(nil)
	if err != nil {
		return err
	}
	if *name != "" {
		fmt.Println(srv.DiscoverableURL(*name))
	}
	for _, raw := range fs.Args() {
		fmt.Printf("%s: %v\n", raw, srv.IsDiscoverableURL(raw))
	}
	return nil
}

// runServe 启动回显服务端
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var c common
	c.register(fs)
	port := fs.Int("port", 0, "监听端口（0 = 随机端口）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}
	if isSet(fs, "port") {
		cfg.Server.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := remoting.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	srv, err := app.Factory().ConfiguredServer(nil)
	if err != nil {
		return err
	}
	h, err := srv.CreateChannel(ctx)
	if err != nil {
		return err
	}
	listener, ok := h.Channel.(pkgif.Listener)
	if !ok {
		return fmt.Errorf("channel %s cannot listen", h.Name)
	}
	listener.SetHandler(echo)
	if err := listener.Start(ctx); err != nil {
		return err
	}

	addr := listener.Addr()
	fmt.Printf("📦 %s\n", remoting.VersionInfo())
	fmt.Printf("通道: %s\n", h.Name)
	fmt.Printf("监听: %s\n", addr)
	if p := portOf(addr); p > 0 {
		_ = srv.SetTCPPort(p)
	}
	fmt.Printf("回调: %s\n", srv.DiscoverableURL("echo"))
	fmt.Println("按 Ctrl+C 退出")

	waitForSignal()
	fmt.Println("\n正在关闭...")
	for protocol, stats := range app.Bandwidth().ByProtocol() {
		fmt.Printf("流量 %s: 入站 %d 字节, 出站 %d 字节\n", protocol, stats.TotalIn, stats.TotalOut)
	}
	return nil
}

// runCall 向服务端发送一个字符串
func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	var c common
	c.register(fs)
	timeout := fs.Duration("timeout", 10*time.Second, "调用超时")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: usage: remoting call [flags] <url> <text>", types.ErrInvalidArgument)
	}
	cfg, err := c.load(fs)
	if err != nil {
		return err
	}
	f, err := c.factory(cfg)
	if err != nil {
		return err
	}

	cli, err := f.ConfiguredClient()
	if err != nil {
		return err
	}
	if !cli.IsURLValid(fs.Arg(0)) {
		return fmt.Errorf("%w: %s is not a %s url", types.ErrInvalidArgument, fs.Arg(0), cli.Protocol())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	h, err := cli.CreateChannel(ctx)
	if err != nil {
		return err
	}
	invoker, ok := h.Channel.(pkgif.Invoker)
	if !ok {
		return fmt.Errorf("channel %s cannot call", h.Name)
	}
	resp, err := invoker.Call(ctx, fs.Arg(0), wrapperspb.String(fs.Arg(1)))
	if err != nil {
		return err
	}

	out, ok := resp.Payload.(*wrapperspb.StringValue)
	if !ok {
		return fmt.Errorf("unexpected response %T", resp.Payload)
	}
	fmt.Println(out.GetValue())
	return nil
}

// echo 回显处理函数
func echo(_ context.Context, req *types.Message) (*types.Message, error) {
	in, ok := req.Payload.(*wrapperspb.StringValue)
	if !ok {
		return nil, errors.New("expected a string payload")
	}
	from, _ := clientaddr.FromMessage(req)
	logger.Info("收到请求", "from", from, "size", len(in.GetValue()))
	return types.NewMessage(in), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func portOf(addr net.Addr) int {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.Port
	case *net.UDPAddr:
		return a.Port
	}
	return 0
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("remoting - 可插拔传输配置与通道标识")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  remoting <命令> [选项] [参数]")
	fmt.Println()
	fmt.Println("命令:")
	fmt.Println("  addrs                          打印本机可达地址")
	fmt.Println("  url <host> <port> <name>       生成协议 URL")
	fmt.Println("  check <url>                    校验 URL 是否属于所选协议")
	fmt.Println("  discoverable [-name N] [url]   打印回调 URL / 校验 URL 是否指向本机")
	fmt.Println("  serve [-port P]                启动回显服务端")
	fmt.Println("  call <url> <text>              向服务端发送字符串")
	fmt.Println("  version                        显示版本信息")
	fmt.Println()
	fmt.Println("公共选项:")
	fmt.Println("  -config    配置文件路径")
	fmt.Println("  -protocol  协议名称（tcp/tcpex/gtcp/gudp 及别名）")
	fmt.Println("  -bind      绑定地址")
	fmt.Println("  -secret    加密共享密钥（设置后启用加密）")
	fmt.Println("  -encrypt   启用加密，未给 -secret 时协商会话密钥")
	fmt.Println("  -duplex    未指定协议时选择双工 TCP（默认 true）")
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  REMOTING_PROTOCOL        协议名称")
	fmt.Println("  REMOTING_PORT            服务端端口")
	fmt.Println("  REMOTING_BIND_ADDRESS    绑定地址")
	fmt.Println("  REMOTING_SECRET          加密共享密钥")
	fmt.Println("  REMOTING_DUPLEX          未指定协议时选择双工 TCP (true/false)")
	fmt.Println("  REMOTING_LOG_LEVEL       日志级别，如 core/netaddr=debug,info")
	fmt.Println("  REMOTING_LOG_FORMAT      日志格式 text/json")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  remoting url -protocol gtcp 10.0.0.5 8080 HostA")
	fmt.Println("  remoting serve -protocol gudp -port 9000 -secret s3cret")
	fmt.Println("  remoting call -protocol gudp -secret s3cret gudp://127.0.0.1:9000/echo hello")
	fmt.Println("  remoting call -protocol gtcp -encrypt gtcp://127.0.0.1:9000/echo hello")
}
