package domain

// 引擎侧的资产类型标签（class name）。分类器只认这四个。
const (
	TypeTagStaticMesh   = "StaticMesh"
	TypeTagSkeletalMesh = "SkeletalMesh"
	TypeTagSkeleton     = "Skeleton"
	TypeTagAnimation    = "AnimSequence"
)

// AssetRef 是资产索引返回的只读引用：类型标签 + 可解析的位置。
//
// Location 的含义由产生它的 provider 决定（本地绝对路径 / 描述文件 URL）；核心流程只透传。
type AssetRef struct {
	Name     string `json:"name"`
	TypeTag  string `json:"type_tag"`
	Location string `json:"location"`
	// RelPath 是相对扫描根的路径（用于稳定排序与报告追溯）。
	RelPath string `json:"rel_path"`
}

// Query 是资产索引的查询条件。
type Query struct {
	TypeTags  []string
	Root      string
	Recursive bool
}

// Settings 是一次审计的调用方输入（根目录范围 + 类别选择 + 聚合模式）。
type Settings struct {
	Root     string    `json:"root"`
	Includes Selection `json:"include"`
	Mode     Mode      `json:"mode"`
}

// SetInclude 勾选/取消勾选单个类别。
func (s *Settings) SetInclude(c Category, included bool) {
	s.Includes = s.Includes.Set(c, included)
}

func (s *Settings) SetMode(m Mode) { s.Mode = m }

func (s *Settings) SetRoot(root string) { s.Root = root }
