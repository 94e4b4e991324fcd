package classify

import (
	"strings"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

// byTag 是类型标签 -> 类别的常量表。只认四个标签，其余一律视为“无法识别”。
var byTag = map[string]domain.Category{
	domain.TypeTagStaticMesh:   domain.StaticMesh,
	domain.TypeTagSkeletalMesh: domain.SkeletalMesh,
	domain.TypeTagSkeleton:     domain.Skeleton,
	domain.TypeTagAnimation:    domain.Animation,
}

// Classify 把资产声明的类型标签映射到类别；ok=false 表示无法识别。
//
// 纯函数、常数时间。标签只做首尾去空白，大小写敏感（与引擎 class name 一致）。
func Classify(typeTag string) (c domain.Category, ok bool) {
	c, ok = byTag[strings.TrimSpace(typeTag)]
	return c, ok
}

// TypeTag 是 Classify 的逆映射；非法类别返回空串。
func TypeTag(c domain.Category) string {
	switch c {
	case domain.StaticMesh:
		return domain.TypeTagStaticMesh
	case domain.SkeletalMesh:
		return domain.TypeTagSkeletalMesh
	case domain.Skeleton:
		return domain.TypeTagSkeleton
	case domain.Animation:
		return domain.TypeTagAnimation
	default:
		return ""
	}
}

// TypeTags 根据选择集合构造资产索引的查询过滤条件。
//
// 输出顺序固定为 StaticMesh, SkeletalMesh, Skeleton, Animation，只包含被选中的类别，无重复。
func TypeTags(sel domain.Selection) []string {
	cats := sel.Categories()
	tags := make([]string, 0, len(cats))
	for _, c := range cats {
		tags = append(tags, TypeTag(c))
	}
	return tags
}
