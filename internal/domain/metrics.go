package domain

// MeshMetrics 是 StaticMesh / SkeletalMesh 共用的指标形状。
//
// 约束：新建时 len(TrianglesPerLOD) == LODCount（下标即 LOD 级别）。
type MeshMetrics struct {
	LODCount          uint64   `json:"lod_count"`
	TrianglesPerLOD   []uint64 `json:"triangles_per_lod"`
	MaterialSlotCount uint64   `json:"material_slot_count"`
}

// SkeletonMetrics 中的 LODCount 只为累加器形状统一而存在；骨架本身没有 LOD 概念，提取时恒为 0。
type SkeletonMetrics struct {
	LODCount  uint64 `json:"lod_count"`
	BoneCount uint64 `json:"bone_count"`
}

type AnimationMetrics struct {
	KeyFrameCount uint64 `json:"key_frame_count"`
}

// MetricRecord 是按 Category 打标签的联合体：只有与 Category 对应的字段有意义。
//
// StaticMesh 与 SkeletalMesh 共用 Mesh 字段，但标签不同，聚合时绝不混加。
type MetricRecord struct {
	Category  Category          `json:"category"`
	Mesh      *MeshMetrics      `json:"mesh,omitempty"`
	Skeleton  *SkeletonMetrics  `json:"skeleton,omitempty"`
	Animation *AnimationMetrics `json:"animation,omitempty"`
}

// NewMeshRecord 构造网格类记录；c 必须是 StaticMesh 或 SkeletalMesh。
func NewMeshRecord(c Category, m MeshMetrics) MetricRecord {
	if m.TrianglesPerLOD == nil {
		m.TrianglesPerLOD = []uint64{}
	}
	return MetricRecord{Category: c, Mesh: &m}
}

func NewSkeletonRecord(m SkeletonMetrics) MetricRecord {
	return MetricRecord{Category: Skeleton, Skeleton: &m}
}

func NewAnimationRecord(m AnimationMetrics) MetricRecord {
	return MetricRecord{Category: Animation, Animation: &m}
}

// ZeroRecord 返回类别 c 的零值记录（部分失败时的替代值）。
func ZeroRecord(c Category) MetricRecord {
	switch c {
	case Skeleton:
		return NewSkeletonRecord(SkeletonMetrics{})
	case Animation:
		return NewAnimationRecord(AnimationMetrics{})
	default:
		return NewMeshRecord(c, MeshMetrics{})
	}
}

// MeshOrZero / SkeletonOrZero / AnimationOrZero 让调用方不必处处判空。
func (r MetricRecord) MeshOrZero() MeshMetrics {
	if r.Mesh == nil {
		return MeshMetrics{TrianglesPerLOD: []uint64{}}
	}
	return *r.Mesh
}

func (r MetricRecord) SkeletonOrZero() SkeletonMetrics {
	if r.Skeleton == nil {
		return SkeletonMetrics{}
	}
	return *r.Skeleton
}

func (r MetricRecord) AnimationOrZero() AnimationMetrics {
	if r.Animation == nil {
		return AnimationMetrics{}
	}
	return *r.Animation
}
