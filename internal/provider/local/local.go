package local

import (
	"context"

	"go.uber.org/zap"

	"github.com/John-Robertt/meshaudit/internal/descriptor"
	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/scan"
)

// Provider 是基于本地目录的资产索引 + 内容读取：每个资产对应一个描述文件。
//
// 约束：
// - Query 只解码描述文件头部（type/name），按类型标签过滤
// - 头部无法解码的文件记 warn 日志后跳过，不影响其它资产
// - Resolve 在调用时才完整解码（与索引阶段解耦）
type Provider struct {
	base        string
	excludeDirs []string
	log         *zap.Logger
}

func New(base string, excludeDirs []string, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		base:        base,
		excludeDirs: append([]string(nil), excludeDirs...),
		log:         log.Named("local"),
	}
}

func (p *Provider) Name() string { return "local" }

func (p *Provider) Query(ctx context.Context, q domain.Query) ([]domain.AssetRef, error) {
	files, err := scan.ScanDescriptors(p.base, q.Root, q.Recursive, p.excludeDirs)
	if err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(q.TypeTags))
	for _, tag := range q.TypeTags {
		want[tag] = struct{}{}
	}

	refs := make([]domain.AssetRef, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := descriptor.LoadHeader(f.AbsPath)
		if err != nil {
			p.log.Warn("跳过无法解码的描述文件", zap.String("file", f.RelPath), zap.Error(err))
			continue
		}
		if len(want) > 0 {
			if _, ok := want[hdr.Type]; !ok {
				continue
			}
		}
		refs = append(refs, domain.AssetRef{
			Name:     hdr.Name,
			TypeTag:  hdr.Type,
			Location: f.AbsPath,
			RelPath:  f.RelPath,
		})
	}
	p.log.Debug("查询完成", zap.String("root", q.Root), zap.Int("files", len(files)), zap.Int("assets", len(refs)))
	return refs, nil
}

func (p *Provider) Resolve(ctx context.Context, ref domain.AssetRef) (any, error) {
	f, err := descriptor.Load(ref.Location)
	if err != nil {
		return nil, err
	}
	return f.Handle()
}
