package aggregate

import (
	"github.com/John-Robertt/meshaudit/internal/domain"
)

// Entry 是一条带显示名的指标记录（Individual 模式按输入顺序原样透传）。
type Entry struct {
	Name   string              `json:"name"`
	Record domain.MetricRecord `json:"record"`
}

// Bucket 是单个类别的运行态：零值记录上的逐字段累加 + 参与资产计数。
//
// 每级三角形数只在所有参与资产 LOD 数一致时才逐级累加；一旦出现不一致即永久放弃（ragged）。
type Bucket struct {
	Category domain.Category

	Count         uint64
	LODs          uint64
	MaterialSlots uint64
	Bones         uint64
	KeyFrames     uint64

	triangles []uint64
	ragged    bool
}

func (b *Bucket) add(r domain.MetricRecord) {
	b.Count++
	switch b.Category {
	case domain.StaticMesh, domain.SkeletalMesh:
		m := r.MeshOrZero()
		b.LODs += m.LODCount
		b.MaterialSlots += m.MaterialSlotCount
		b.addTriangles(m.TrianglesPerLOD)
	case domain.Skeleton:
		s := r.SkeletonOrZero()
		b.LODs += s.LODCount
		b.Bones += s.BoneCount
	case domain.Animation:
		b.KeyFrames += r.AnimationOrZero().KeyFrameCount
	}
}

func (b *Bucket) addTriangles(tris []uint64) {
	if b.ragged {
		return
	}
	if b.Count == 1 {
		b.triangles = append([]uint64(nil), tris...)
		return
	}
	if len(tris) != len(b.triangles) {
		b.ragged = true
		b.triangles = nil
		return
	}
	for i, n := range tris {
		b.triangles[i] += n
	}
}

// Value 是一个类别的聚合结果。TrianglesPerLOD 为 nil 表示无法逐级合并（LOD 数不一致或非网格类别）。
type Value struct {
	Category          domain.Category `json:"category"`
	Count             uint64          `json:"count"`
	LODCount          uint64          `json:"lod_count"`
	MaterialSlotCount uint64          `json:"material_slot_count"`
	BoneCount         uint64          `json:"bone_count"`
	KeyFrameCount     uint64          `json:"key_frame_count"`
	TrianglesPerLOD   []uint64        `json:"triangles_per_lod,omitempty"`
}

// Total 返回逐字段求和结果。
func (b *Bucket) Total() Value {
	v := Value{
		Category:          b.Category,
		Count:             b.Count,
		LODCount:          b.LODs,
		MaterialSlotCount: b.MaterialSlots,
		BoneCount:         b.Bones,
		KeyFrameCount:     b.KeyFrames,
	}
	if !b.ragged && b.Category.IsMesh() && b.Count > 0 {
		v.TrianglesPerLOD = append([]uint64{}, b.triangles...)
	}
	return v
}

// Average 返回各字段整除 Count 的结果；Count == 0 时 ok=false（调用方必须跳过该类别）。
func (b *Bucket) Average() (v Value, ok bool) {
	if b.Count == 0 {
		return Value{Category: b.Category}, false
	}
	v = b.Total()
	n := v.Count
	v.LODCount /= n
	v.MaterialSlotCount /= n
	v.BoneCount /= n
	v.KeyFrameCount /= n
	for i := range v.TrianglesPerLOD {
		v.TrianglesPerLOD[i] /= n
	}
	return v, true
}

// Accumulator 是一次审计独占的累加器：创建于审计开始，结束时消费一次后丢弃。
type Accumulator struct {
	mode    domain.Mode
	entries []Entry
	buckets [len(domain.Categories)]Bucket
}

func New(mode domain.Mode) *Accumulator {
	a := &Accumulator{mode: mode}
	for i, c := range domain.Categories {
		a.buckets[i].Category = c
	}
	return a
}

// Add 累加一条记录。非法类别的记录被忽略。
func (a *Accumulator) Add(e Entry) {
	b := a.bucket(e.Record.Category)
	if b == nil {
		return
	}
	b.add(e.Record)
	if a.mode == domain.Individual {
		a.entries = append(a.entries, e)
	}
}

func (a *Accumulator) bucket(c domain.Category) *Bucket {
	for i := range a.buckets {
		if a.buckets[i].Category == c {
			return &a.buckets[i]
		}
	}
	return nil
}

// Count 返回类别 c 当前参与统计的资产数。
func (a *Accumulator) Count(c domain.Category) uint64 {
	if b := a.bucket(c); b != nil {
		return b.Count
	}
	return 0
}

// Result 是聚合器的输出。
//
// - Individual：Entries 为输入顺序的逐资产记录，Values 为空
// - Total / Average：Values 只包含 Count > 0 的类别，Entries 为空
type Result struct {
	Mode    domain.Mode                `json:"mode"`
	Entries []Entry                    `json:"entries"`
	Values  map[domain.Category]Value  `json:"values"`
	Counts  map[domain.Category]uint64 `json:"counts"`
}

func (a *Accumulator) Result() Result {
	r := Result{
		Mode:    a.mode,
		Entries: make([]Entry, 0, len(a.entries)),
		Values:  make(map[domain.Category]Value, len(a.buckets)),
		Counts:  make(map[domain.Category]uint64, len(a.buckets)),
	}
	r.Entries = append(r.Entries, a.entries...)

	for i := range a.buckets {
		b := &a.buckets[i]
		if b.Count == 0 {
			continue
		}
		r.Counts[b.Category] = b.Count
		switch a.mode {
		case domain.Total:
			r.Values[b.Category] = b.Total()
		case domain.Average:
			v, _ := b.Average()
			r.Values[b.Category] = v
		}
	}
	return r
}

// Aggregate 是 New + Add* + Result 的便捷形式。
func Aggregate(entries []Entry, mode domain.Mode) Result {
	a := New(mode)
	for _, e := range entries {
		a.Add(e)
	}
	return a.Result()
}
