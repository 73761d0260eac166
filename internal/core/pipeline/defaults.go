package pipeline

import (
	"github.com/dep2p/go-remoting/internal/core/clientaddr"
	"github.com/dep2p/go-remoting/internal/core/compress"
	"github.com/dep2p/go-remoting/internal/core/crypt"
	"github.com/dep2p/go-remoting/internal/core/formatter"
	pkgif "github.com/dep2p/go-remoting/pkg/interfaces"
)

// DefaultStageFactories 返回默认阶段实现
//
//   - 序列化：formatter（protobuf Any 信封）
//   - 加密：crypt（AEAD）
//   - 压缩：compress（zstd/s2/deflate）
//   - 调用方地址：clientaddr
func DefaultStageFactories() StageFactories {
	return StageFactories{
		Serialization: func(opts Options) (pkgif.Stage, error) {
			return formatter.New(formatter.Config{
				Versioning:  opts.Versioning,
				FilterLevel: opts.TypeFilter,
			}), nil
		},
		Encryption: func(opts Options) (pkgif.Stage, error) {
			s, err := crypt.New(opts.Algorithm, opts.Secret)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Compression: func(opts Options) (pkgif.Stage, error) {
			s, err := compress.New(opts.Compression)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		ClientAddress: func(Options) (pkgif.Stage, error) {
			return clientaddr.New(), nil
		},
	}
}
