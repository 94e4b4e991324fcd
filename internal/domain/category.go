package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category 是受审计资产的封闭分类。
//
// 取值即位掩码（与引擎侧的 include flags 保持一致），因此 Selection 可以直接按位组合。
type Category uint8

const (
	StaticMesh   Category = 1 << iota // 1
	SkeletalMesh                      // 2
	Skeleton                          // 4
	Animation                         // 8
)

// Categories 是固定的类别顺序：过滤条件、报告分块都严格按该顺序输出。
var Categories = [...]Category{StaticMesh, SkeletalMesh, Skeleton, Animation}

func (c Category) Valid() bool {
	switch c {
	case StaticMesh, SkeletalMesh, Skeleton, Animation:
		return true
	default:
		return false
	}
}

// String 返回配置/CLI/JSON 使用的稳定名称。
func (c Category) String() string {
	switch c {
	case StaticMesh:
		return "static_mesh"
	case SkeletalMesh:
		return "skeletal_mesh"
	case Skeleton:
		return "skeleton"
	case Animation:
		return "animation"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Label 返回报告中使用的大写标签。
func (c Category) Label() string {
	switch c {
	case StaticMesh:
		return "STATIC MESH"
	case SkeletalMesh:
		return "SKELETAL MESH"
	case Skeleton:
		return "SKELETON"
	case Animation:
		return "ANIMATION"
	default:
		return "UNKNOWN"
	}
}

// IsMesh 表示该类别产出 MeshMetrics 形状的记录。
func (c Category) IsMesh() bool { return c == StaticMesh || c == SkeletalMesh }

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("非法类别：%d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("未知类别：%q", string(b))
	}
	*c = v
	return nil
}

// ParseCategory 宽松解析类别名：大小写、'-'/'_'/空格 均不敏感。
// 例如 "static_mesh"、"StaticMesh"、"static-mesh" 都得到 StaticMesh。
func ParseCategory(s string) (Category, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
	switch k {
	case "staticmesh":
		return StaticMesh, true
	case "skeletalmesh":
		return SkeletalMesh, true
	case "skeleton":
		return Skeleton, true
	case "animation", "anim", "animsequence":
		return Animation, true
	default:
		return 0, false
	}
}

// Selection 是类别集合（位集语义）。
//
// 约束：空集合是哨兵值，表示“什么都没选”，审计必须直接终止为 no-op。
// 所有方法都是值语义：Add/Remove 返回新集合，不修改接收者。
type Selection uint8

// NewSelection 由若干类别构造集合；非法类别被忽略。
func NewSelection(cats ...Category) Selection {
	var s Selection
	for _, c := range cats {
		s = s.Add(c)
	}
	return s
}

// AllSelected 包含全部四个类别。
func AllSelected() Selection { return NewSelection(Categories[:]...) }

func (s Selection) Add(c Category) Selection {
	if !c.Valid() {
		return s
	}
	return s | Selection(c)
}

func (s Selection) Remove(c Category) Selection {
	return s &^ Selection(c)
}

// Set 按 included 决定加入或移除 c（对应编辑器里勾选/取消勾选一个 include flag）。
func (s Selection) Set(c Category, included bool) Selection {
	if included {
		return s.Add(c)
	}
	return s.Remove(c)
}

func (s Selection) Has(c Category) bool {
	return c.Valid() && s&Selection(c) != 0
}

func (s Selection) IsEmpty() bool {
	return s&Selection(StaticMesh|SkeletalMesh|Skeleton|Animation) == 0
}

// Categories 按固定顺序返回集合内的类别（无重复）。
func (s Selection) Categories() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s Selection) Names() []string {
	cats := s.Categories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.String())
	}
	return out
}

func (s Selection) String() string {
	if s.IsEmpty() {
		return "none"
	}
	return strings.Join(s.Names(), ",")
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	v, err := ParseSelection(names)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSelection 解析类别名列表；每一项也可以是逗号分隔的多个名称。
// "all" 表示全部类别。空列表得到空集合（不是错误）。
func ParseSelection(items []string) (Selection, error) {
	var s Selection
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.EqualFold(part, "all") {
				s = AllSelected()
				continue
			}
			c, ok := ParseCategory(part)
			if !ok {
				return 0, fmt.Errorf("未知类别：%q（可选 static_mesh|skeletal_mesh|skeleton|animation|all）", part)
			}
			s = s.Add(c)
		}
	}
	return s, nil
}
