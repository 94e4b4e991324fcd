package extract

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/meshaudit/internal/domain"
	"github.com/John-Robertt/meshaudit/internal/provider"
)

// MissingDataError 表示资产缺少预期的子结构（例如骨骼网格没有可渲染数据）。
//
// 这是“部分失败”：随该错误一起返回的记录仍然可用（缺失部分为零值），调用方应继续批处理。
type MissingDataError struct {
	Asset    string
	Category domain.Category
	What     string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("No %s found for %s: %s", e.What, titleOf(e.Category), e.Asset)
}

// HandleError 表示句柄没有实现其声明类别所需的访问接口。此时记录不可用。
type HandleError struct {
	Category domain.Category
	Got      string
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("句柄类型 %s 未实现 %s 的访问接口", e.Got, e.Category)
}

// IsPartial 判断 err 是否为“记录仍可用”的部分失败。
func IsPartial(err error) bool {
	var e *MissingDataError
	return errors.As(err, &e)
}

type extractor func(handle any) (domain.MetricRecord, error)

// table 是类别 -> 提取函数的分派表；类别集合封闭，四项缺一不可。
var table = map[domain.Category]extractor{
	domain.StaticMesh: func(h any) (domain.MetricRecord, error) {
		m, ok := h.(provider.StaticMesh)
		if !ok {
			return domain.MetricRecord{}, &HandleError{Category: domain.StaticMesh, Got: fmt.Sprintf("%T", h)}
		}
		return StaticMesh(m), nil
	},
	domain.SkeletalMesh: func(h any) (domain.MetricRecord, error) {
		m, ok := h.(provider.SkeletalMesh)
		if !ok {
			return domain.MetricRecord{}, &HandleError{Category: domain.SkeletalMesh, Got: fmt.Sprintf("%T", h)}
		}
		return SkeletalMesh(m)
	},
	domain.Skeleton: func(h any) (domain.MetricRecord, error) {
		s, ok := h.(provider.Skeleton)
		if !ok {
			return domain.MetricRecord{}, &HandleError{Category: domain.Skeleton, Got: fmt.Sprintf("%T", h)}
		}
		return Skeleton(s), nil
	},
	domain.Animation: func(h any) (domain.MetricRecord, error) {
		a, ok := h.(provider.Animation)
		if !ok {
			return domain.MetricRecord{}, &HandleError{Category: domain.Animation, Got: fmt.Sprintf("%T", h)}
		}
		return Animation(a), nil
	},
}

// Extract 按类别分派到对应的提取函数。
//
// 返回值约定：
// - err == nil：记录完整
// - IsPartial(err)：记录可用（缺失部分为零），应发出警告后继续
// - 其它 err：记录不可用，调用方跳过该资产
func Extract(c domain.Category, handle any) (domain.MetricRecord, error) {
	fn, ok := table[c]
	if !ok {
		return domain.MetricRecord{}, fmt.Errorf("未知类别：%v", c)
	}
	return fn(handle)
}

// StaticMesh 提取 LOD 数、每级三角形数与材质槽数。
func StaticMesh(m provider.StaticMesh) domain.MetricRecord {
	n := nonNeg(m.LODCount())
	tris := make([]uint64, 0, n)
	for lod := 0; lod < n; lod++ {
		tris = append(tris, m.LODTriangleCount(lod))
	}
	return domain.NewMeshRecord(domain.StaticMesh, domain.MeshMetrics{
		LODCount:          uint64(n),
		TrianglesPerLOD:   tris,
		MaterialSlotCount: uint64(nonNeg(m.MaterialSlotCount())),
	})
}

// SkeletalMesh 从可渲染数据提取 LOD 与三角形数（每级 = 各 render section 三角形数之和）。
//
// 可渲染数据缺失时返回 {0, [], 材质槽数} 与 *MissingDataError；材质槽数与可渲染数据是否存在无关。
func SkeletalMesh(m provider.SkeletalMesh) (domain.MetricRecord, error) {
	slots := uint64(nonNeg(m.MaterialSlotCount()))

	rd, ok := m.RenderData()
	if !ok {
		rec := domain.NewMeshRecord(domain.SkeletalMesh, domain.MeshMetrics{MaterialSlotCount: slots})
		return rec, &MissingDataError{Asset: m.Name(), Category: domain.SkeletalMesh, What: "render data"}
	}

	tris := make([]uint64, 0, len(rd.LODs))
	for _, lod := range rd.LODs {
		var sum uint64
		for _, s := range lod.Sections {
			sum += s.Triangles
		}
		tris = append(tris, sum)
	}
	return domain.NewMeshRecord(domain.SkeletalMesh, domain.MeshMetrics{
		LODCount:          uint64(len(rd.LODs)),
		TrianglesPerLOD:   tris,
		MaterialSlotCount: slots,
	}), nil
}

// Skeleton 只提取骨骼数；LODCount 保持 0。
func Skeleton(s provider.Skeleton) domain.MetricRecord {
	return domain.NewSkeletonRecord(domain.SkeletonMetrics{
		BoneCount: uint64(nonNeg(s.ReferenceBoneCount())),
	})
}

func Animation(a provider.Animation) domain.MetricRecord {
	return domain.NewAnimationRecord(domain.AnimationMetrics{
		KeyFrameCount: uint64(nonNeg(a.SampledKeyCount())),
	})
}

func nonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func titleOf(c domain.Category) string {
	switch c {
	case domain.StaticMesh:
		return "Static Mesh"
	case domain.SkeletalMesh:
		return "Skeletal Mesh"
	case domain.Skeleton:
		return "Skeleton"
	case domain.Animation:
		return "Animation"
	default:
		return c.String()
	}
}
