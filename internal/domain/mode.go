package domain

import (
	"fmt"
	"strings"
)

// Mode 决定同类别的多条指标记录如何合并。三种模式互斥，无先后之分。
type Mode uint8

const (
	// Individual 不做合并：逐资产输出。
	Individual Mode = iota
	// Total 按字段求和。
	Total
	// Average 求和后按参与资产数做整数截断除法。
	Average
)

func (m Mode) String() string {
	switch m {
	case Individual:
		return "individual"
	case Total:
		return "total"
	case Average:
		return "average"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) Valid() bool { return m <= Average }

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("非法聚合模式：%d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode 解析聚合模式名（大小写不敏感）。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual":
		return Individual, nil
	case "total":
		return Total, nil
	case "average", "avg":
		return Average, nil
	default:
		return 0, fmt.Errorf("聚合模式只能是 individual|total|average，实际是 %q", s)
	}
}
