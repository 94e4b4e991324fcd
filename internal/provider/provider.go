package provider

import (
	"context"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

// Provider 是核心流程与外部资产系统之间的唯一边界：资产索引 + 内容读取。
//
// 约束：
// - Query 只负责按类型标签/根范围列出资产，不解析几何数据
// - Resolve 把 AssetRef 解析为具体句柄；句柄实现下面与其类别对应的只读访问接口
// - 两者都不做重试/缓存策略之外的“聪明”处理；核心流程把单资产失败降级为警告
type Provider interface {
	Name() string
	Query(ctx context.Context, q domain.Query) ([]domain.AssetRef, error)
	Resolve(ctx context.Context, ref domain.AssetRef) (any, error)
}

// StaticMesh 是静态网格的只读访问接口。
type StaticMesh interface {
	Name() string
	LODCount() int
	// LODTriangleCount 返回第 lod 级的三角形数；越界返回 0。
	LODTriangleCount(lod int) uint64
	MaterialSlotCount() int
}

// SkeletalMesh 是骨骼网格的只读访问接口。
// RenderData 的 ok=false 表示资产缺少可渲染数据（不是错误，由提取层降级处理）。
type SkeletalMesh interface {
	Name() string
	RenderData() (data SkeletalRenderData, ok bool)
	MaterialSlotCount() int
}

type Skeleton interface {
	Name() string
	ReferenceBoneCount() int
}

type Animation interface {
	Name() string
	SampledKeyCount() int
}

// SkeletalRenderData 是骨骼网格的可渲染数据：每级 LOD 由若干 render section 组成。
type SkeletalRenderData struct {
	LODs []SkeletalLOD
}

type SkeletalLOD struct {
	Sections []RenderSection
}

type RenderSection struct {
	Triangles uint64
}
