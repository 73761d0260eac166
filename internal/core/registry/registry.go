// Package registry 实现通道注册表
//
// 注册表以通道名称为键缓存已构造的通道句柄：
//   - 同名通道最多构造一次，并发未命中由 singleflight 合并
//   - 不同名称的构造互不阻塞
//   - 构造失败不留任何记录，下次调用重新构造
//   - 没有按名称注销，Close 统一关闭所有实现 io.Closer 的通道
package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-remoting/internal/core/metrics"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/registry")

// Registry 通道注册表
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*pkgif.ChannelHandle
	closed  bool

	group    singleflight.Group
	reporter metrics.Reporter
}

var _ pkgif.ChannelRegistry = (*Registry)(nil)

// New 创建注册表
func New(reporter metrics.Reporter) *Registry {
	return &Registry{
		handles:  make(map[string]*pkgif.ChannelHandle),
		reporter: metrics.OrNop(reporter),
	}
}

// Lookup 按名称查找
func (r *Registry) Lookup(name string) (*pkgif.ChannelHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// GetOrCreate 查找，未命中时构造并注册
//
// 同名并发调用只执行一次 build，其余调用者等待并得到同一个句柄。
// build 的错误原样返回给所有等待者。
func (r *Registry) GetOrCreate(name string, protocol types.ProtocolID, build func() (*pkgif.ChannelHandle, error)) (*pkgif.ChannelHandle, error) {
	if h, ok := r.Lookup(name); ok {
		r.reporter.CacheHit(h.Protocol)
		return h, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		// 等待期间可能已被其他 Do 注册
		if h, ok := r.Lookup(name); ok {
			r.reporter.CacheHit(h.Protocol)
			return h, nil
		}

		h, err := build()
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, fmt.Errorf("%w: construction of %q returned no channel", types.ErrInvalidArgument, name)
		}
		h.Name = name
		if h.Protocol == "" {
			h.Protocol = protocol
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			closeChannel(h)
			return nil, fmt.Errorf("register %q: %w", name, types.ErrChannelClosed)
		}
		r.handles[name] = h
		r.mu.Unlock()

		r.reporter.ChannelConstructed(h.Protocol)
		logger.Debug("通道已注册", "name", name, "protocol", h.Protocol)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pkgif.ChannelHandle), nil
}

// Names 返回已注册的名称（已排序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回已注册通道数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close 关闭所有通道
//
// 关闭后的注册表不再接受新通道；重复调用返回 nil。
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handles := r.handles
	r.handles = make(map[string]*pkgif.ChannelHandle)
	r.mu.Unlock()

	names := make([]string, 0, len(handles))
	for name := range handles {
		names = append(names, name)
	}
	sort.Strings(names)

	var err error
	for _, name := range names {
		if cerr := closeChannel(handles[name]); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", name, cerr))
		}
	}
	if err != nil {
		logger.Warn("关闭通道时出错", "err", err)
	}
	return err
}

func closeChannel(h *pkgif.ChannelHandle) error {
	if c, ok := h.Channel.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return New(nil)
})

// Default 返回进程级共享注册表
//
// 未显式注入注册表的协议配置共享该实例。
func Default() *Registry {
	return defaultRegistry()
}
