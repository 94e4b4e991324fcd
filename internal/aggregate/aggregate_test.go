package aggregate

import (
	"reflect"
	"testing"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

func staticMesh(name string, slots uint64, tris ...uint64) Entry {
	return Entry{Name: name, Record: domain.NewMeshRecord(domain.StaticMesh, domain.MeshMetrics{
		LODCount:          uint64(len(tris)),
		TrianglesPerLOD:   tris,
		MaterialSlotCount: slots,
	})}
}

func skeleton(name string, bones uint64) Entry {
	return Entry{Name: name, Record: domain.NewSkeletonRecord(domain.SkeletonMetrics{BoneCount: bones})}
}

func animation(name string, keys uint64) Entry {
	return Entry{Name: name, Record: domain.NewAnimationRecord(domain.AnimationMetrics{KeyFrameCount: keys})}
}

func scenarioInput() []Entry {
	return []Entry{
		staticMesh("SM_A", 1, 100, 50),
		staticMesh("SM_B", 2, 30),
		skeleton("SK_A", 20),
	}
}

func TestAggregate_TotalScenario(t *testing.T) {
	r := Aggregate(scenarioInput(), domain.Total)

	sm, ok := r.Values[domain.StaticMesh]
	if !ok {
		t.Fatalf("缺少 StaticMesh 聚合值：%+v", r.Values)
	}
	if sm.LODCount != 3 || sm.MaterialSlotCount != 3 || sm.Count != 2 {
		t.Fatalf("StaticMesh 求和不正确：%+v", sm)
	}
	// LOD 数不一致（2 vs 1）：不得逐级合并。
	if sm.TrianglesPerLOD != nil {
		t.Fatalf("LOD 数不一致时不应给出每级三角形数：%v", sm.TrianglesPerLOD)
	}

	sk := r.Values[domain.Skeleton]
	if sk.BoneCount != 20 || sk.LODCount != 0 {
		t.Fatalf("Skeleton 求和不正确：%+v", sk)
	}

	if _, ok := r.Values[domain.Animation]; ok {
		t.Fatalf("无资产的类别不应出现在结果中")
	}
	if _, ok := r.Values[domain.SkeletalMesh]; ok {
		t.Fatalf("无资产的类别不应出现在结果中")
	}
	if len(r.Entries) != 0 {
		t.Fatalf("Total 模式不应保留逐资产记录：%d", len(r.Entries))
	}
}

func TestAggregate_AverageScenario(t *testing.T) {
	r := Aggregate(scenarioInput(), domain.Average)

	sm := r.Values[domain.StaticMesh]
	if sm.LODCount != 1 || sm.MaterialSlotCount != 1 {
		t.Fatalf("StaticMesh 平均值应为整除截断结果：%+v", sm)
	}
	if sk := r.Values[domain.Skeleton]; sk.BoneCount != 20 {
		t.Fatalf("Skeleton 平均值不正确：%+v", sk)
	}
}

func TestAggregate_TotalIsOrderIndependent(t *testing.T) {
	base := []Entry{
		staticMesh("a", 1, 10, 5),
		staticMesh("b", 4, 7, 3),
		skeleton("s1", 11),
		animation("x", 30),
		staticMesh("c", 2, 1, 1),
		skeleton("s2", 9),
		animation("y", 12),
	}
	want := Aggregate(base, domain.Total).Values

	// 逐个旋转 + 逆序，覆盖若干排列。
	for shift := 0; shift < len(base); shift++ {
		perm := make([]Entry, 0, len(base))
		perm = append(perm, base[shift:]...)
		perm = append(perm, base[:shift]...)
		if got := Aggregate(perm, domain.Total).Values; !reflect.DeepEqual(got, want) {
			t.Fatalf("shift=%d：got=%+v want=%+v", shift, got, want)
		}

		rev := make([]Entry, len(perm))
		for i := range perm {
			rev[len(perm)-1-i] = perm[i]
		}
		if got := Aggregate(rev, domain.Total).Values; !reflect.DeepEqual(got, want) {
			t.Fatalf("shift=%d（逆序）：got=%+v want=%+v", shift, got, want)
		}
	}

	sm := want[domain.StaticMesh]
	if !reflect.DeepEqual(sm.TrianglesPerLOD, []uint64{18, 9}) {
		t.Fatalf("LOD 数一致时应逐级求和：%v", sm.TrianglesPerLOD)
	}
}

func TestAggregate_AverageIsTotalDividedByCount(t *testing.T) {
	in := []Entry{
		staticMesh("a", 3, 10, 5),
		staticMesh("b", 4, 7, 4),
		staticMesh("c", 2, 2, 1),
		skeleton("s1", 11),
		skeleton("s2", 8),
		animation("x", 31),
		animation("y", 12),
		animation("z", 2),
	}
	total := Aggregate(in, domain.Total).Values
	avg := Aggregate(in, domain.Average).Values

	for c, tv := range total {
		av, ok := avg[c]
		if !ok {
			t.Fatalf("%v：Average 缺少类别", c)
		}
		n := tv.Count
		if av.Count != n {
			t.Fatalf("%v：Count 不一致 %d != %d", c, av.Count, n)
		}
		if av.LODCount != tv.LODCount/n || av.MaterialSlotCount != tv.MaterialSlotCount/n ||
			av.BoneCount != tv.BoneCount/n || av.KeyFrameCount != tv.KeyFrameCount/n {
			t.Fatalf("%v：avg=%+v total=%+v", c, av, tv)
		}
		if len(av.TrianglesPerLOD) != len(tv.TrianglesPerLOD) {
			t.Fatalf("%v：每级三角形长度不一致", c)
		}
		for i := range tv.TrianglesPerLOD {
			if av.TrianglesPerLOD[i] != tv.TrianglesPerLOD[i]/n {
				t.Fatalf("%v：LOD[%d] avg=%d total=%d", c, i, av.TrianglesPerLOD[i], tv.TrianglesPerLOD[i])
			}
		}
	}
}

func TestAggregate_IndividualKeepsInputOrder(t *testing.T) {
	in := scenarioInput()
	r := Aggregate(in, domain.Individual)
	if !reflect.DeepEqual(r.Entries, in) {
		t.Fatalf("Individual 应按输入顺序原样透传：%+v", r.Entries)
	}
	if len(r.Values) != 0 {
		t.Fatalf("Individual 不应产生聚合值：%+v", r.Values)
	}
	if r.Counts[domain.StaticMesh] != 2 || r.Counts[domain.Skeleton] != 1 {
		t.Fatalf("计数不正确：%+v", r.Counts)
	}
}

func TestBucket_AverageZeroCount(t *testing.T) {
	b := &Bucket{Category: domain.Animation}
	if _, ok := b.Average(); ok {
		t.Fatalf("Count == 0 时 Average 必须返回 ok=false")
	}
}

func TestBucket_RaggedStaysRagged(t *testing.T) {
	a := New(domain.Total)
	a.Add(staticMesh("a", 1, 10, 5))
	a.Add(staticMesh("b", 1, 10))
	a.Add(staticMesh("c", 1, 10, 5))
	if v := a.Result().Values[domain.StaticMesh]; v.TrianglesPerLOD != nil {
		t.Fatalf("一旦出现 LOD 数不一致就不应再恢复逐级合并：%v", v.TrianglesPerLOD)
	}
	if a.Count(domain.StaticMesh) != 3 {
		t.Fatalf("计数不正确：%d", a.Count(domain.StaticMesh))
	}
}

func TestAccumulator_MeshCategoriesNeverMix(t *testing.T) {
	a := New(domain.Total)
	a.Add(staticMesh("sm", 2, 100))
	a.Add(Entry{Name: "sk", Record: domain.NewMeshRecord(domain.SkeletalMesh, domain.MeshMetrics{
		LODCount: 2, TrianglesPerLOD: []uint64{40, 20}, MaterialSlotCount: 5,
	})})
	r := a.Result()
	if r.Values[domain.StaticMesh].MaterialSlotCount != 2 || r.Values[domain.SkeletalMesh].MaterialSlotCount != 5 {
		t.Fatalf("StaticMesh 与 SkeletalMesh 不得混加：%+v", r.Values)
	}
}
