package formatter

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"

	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
	"github.com/dep2p/go-remoting/pkg/lib/log"
	"github.com/dep2p/go-remoting/pkg/types"
)

var logger = log.Logger("core/formatter")

// StageName 阶段名称
const StageName = "formatter"

// Resolver 消息类型解析器
//
// *protoregistry.Types 满足该接口。
type Resolver interface {
	protoregistry.MessageTypeResolver
	RangeMessages(f func(protoreflect.MessageType) bool)
}

// Config 序列化阶段配置
type Config struct {
	// Versioning 版本策略
	Versioning types.Versioning

	// FilterLevel 过滤级别
	FilterLevel types.TypeFilterLevel

	// Allowed Low 级别下允许的类型全名
	Allowed []protoreflect.FullName

	// Resolver 类型解析器，nil 时使用 protoregistry.GlobalTypes
	Resolver Resolver
}

// Stage 序列化阶段
type Stage struct {
	versioning types.Versioning
	filter     types.TypeFilterLevel
	allowed    map[protoreflect.FullName]struct{}
	resolver   Resolver
}

var _ pkgif.Stage = (*Stage)(nil)

// New 创建序列化阶段
func New(cfg Config) *Stage {
	s := &Stage{
		versioning: cfg.Versioning,
		filter:     cfg.FilterLevel,
		allowed:    make(map[protoreflect.FullName]struct{}, len(cfg.Allowed)),
		resolver:   cfg.Resolver,
	}
	if s.resolver == nil {
		s.resolver = protoregistry.GlobalTypes
	}
	for _, name := range cfg.Allowed {
		s.allowed[name] = struct{}{}
	}
	return s
}

// Name 实现 pkgif.Stage
func (s *Stage) Name() string {
	return StageName
}

// Versioning 返回版本策略
func (s *Stage) Versioning() types.Versioning {
	return s.versioning
}

// Outbound 将 Payload 编码到 Body
func (s *Stage) Outbound(_ context.Context, msg *types.Message) error {
	m, ok := msg.Payload.(proto.Message)
	if !ok || m == nil {
		return fmt.Errorf("%w: got %T", ErrNotProtoMessage, msg.Payload)
	}
	if err := s.admit(m.ProtoReflect().Descriptor().FullName()); err != nil {
		return err
	}

	wrapped, err := anypb.New(m)
	if err != nil {
		return fmt.Errorf("wrap payload: %w", err)
	}
	body, err := proto.MarshalOptions{Deterministic: true}.Marshal(wrapped)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg.Body = body
	return nil
}

// Inbound 将 Body 解码到 Payload
func (s *Stage) Inbound(_ context.Context, msg *types.Message) error {
	if len(msg.Body) == 0 {
		return ErrEmptyBody
	}

	var wrapped anypb.Any
	if err := proto.Unmarshal(msg.Body, &wrapped); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	mt, err := s.resolve(wrapped.GetTypeUrl())
	if err != nil {
		return err
	}
	if err := s.admit(mt.Descriptor().FullName()); err != nil {
		return err
	}

	m := mt.New().Interface()
	opts := proto.UnmarshalOptions{
		DiscardUnknown: s.versioning == types.VersioningTolerant,
	}
	if err := opts.Unmarshal(wrapped.GetValue(), m); err != nil {
		return fmt.Errorf("unmarshal %s: %w", mt.Descriptor().FullName(), err)
	}
	if s.versioning == types.VersioningStrict && hasUnknown(m.ProtoReflect()) {
		return fmt.Errorf("%w: %s carries unknown fields", types.ErrTypeMismatch, mt.Descriptor().FullName())
	}

	msg.Payload = m
	return nil
}

// resolve 按类型 URL 解析消息类型
func (s *Stage) resolve(url string) (protoreflect.MessageType, error) {
	mt, err := s.resolver.FindMessageByURL(url)
	if err == nil {
		return mt, nil
	}
	if s.versioning == types.VersioningStrict {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrTypeMismatch, url, err)
	}

	short := shortName(url)
	var found protoreflect.MessageType
	s.resolver.RangeMessages(func(candidate protoreflect.MessageType) bool {
		if candidate.Descriptor().Name() == protoreflect.Name(short) {
			found = candidate
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrTypeMismatch, url, err)
	}
	logger.Debug("类型名漂移，按短名匹配", "url", url, "resolved", found.Descriptor().FullName())
	return found, nil
}

// admit 按过滤级别检查类型
func (s *Stage) admit(name protoreflect.FullName) error {
	if s.filter == types.TypeFilterFull {
		return nil
	}
	if _, ok := s.allowed[name]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s (filter level %s)", types.ErrTypeFiltered, name, s.filter)
}

// shortName 返回类型 URL 中最后一个点之后的部分
func shortName(url string) string {
	name := url
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// hasUnknown 报告消息（含嵌套消息）是否带有未知字段
func hasUnknown(m protoreflect.Message) bool {
	if len(m.GetUnknown()) > 0 {
		return true
	}
	unknown := false
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsMap():
			if fd.MapValue().Message() == nil {
				return true
			}
			v.Map().Range(func(_ protoreflect.MapKey, mv protoreflect.Value) bool {
				unknown = hasUnknown(mv.Message())
				return !unknown
			})
		case fd.IsList():
			if fd.Message() == nil {
				return true
			}
			list := v.List()
			for i := 0; i < list.Len() && !unknown; i++ {
				unknown = hasUnknown(list.Get(i).Message())
			}
		case fd.Message() != nil:
			unknown = hasUnknown(v.Message())
		}
		return !unknown
	})
	return unknown
}
