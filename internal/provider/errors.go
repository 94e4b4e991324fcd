package provider

import (
	"context"
	"fmt"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

const (
	StageQuery   = "query"
	StageResolve = "resolve"
)

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此区分“索引查询失败”（整次审计失败）与“单资产解析失败”（降级为警告）。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "query" 或 "resolve"
	Asset    string // 仅 resolve 阶段有值
	Err      error
}

func (e *Error) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("provider=%s stage=%s asset=%s: %v", e.Provider, e.Stage, e.Asset, e.Err)
	}
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// QueryAssets 调用 p.Query，并把错误统一包装为 *Error。
func QueryAssets(ctx context.Context, p Provider, q domain.Query) ([]domain.AssetRef, error) {
	refs, err := p.Query(ctx, q)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Stage: StageQuery, Err: err}
	}
	return refs, nil
}

// ResolveAsset 调用 p.Resolve，并把错误统一包装为 *Error。
func ResolveAsset(ctx context.Context, p Provider, ref domain.AssetRef) (any, error) {
	h, err := p.Resolve(ctx, ref)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Stage: StageResolve, Asset: ref.Name, Err: err}
	}
	if h == nil {
		return nil, &Error{Provider: p.Name(), Stage: StageResolve, Asset: ref.Name, Err: fmt.Errorf("句柄为空")}
	}
	return h, nil
}
