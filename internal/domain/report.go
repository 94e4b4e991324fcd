package domain

import (
	"encoding/json"
	"time"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Line 是一行可读输出（报告行或诊断行），带严重级别标签。
// 级别只影响展示/日志，不参与核心流程控制。
type Line struct {
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

func Info(text string) Line { return Line{Severity: SeverityInfo, Text: text} }

func Warning(text string) Line { return Line{Severity: SeverityWarning, Text: text} }

const (
	OutcomeCompleted      = "completed"
	OutcomeCancelled      = "cancelled"
	OutcomeEmptySelection = "empty_selection"
	OutcomeFailed         = "failed"
)

const (
	SkipUnrecognized = "unrecognized"
	SkipLoadFailed   = "load_failed"
	SkipNotSelected  = "not_selected"
)

const (
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
	ErrCodeQueryFailed       = "query_failed"
)

// AuditReport 是对外稳定输出（stdout JSON）的结构。只输出，不落盘。
type AuditReport struct {
	RunID     string    `json:"run_id"`
	Path      string    `json:"path"`
	Root      string    `json:"root"`
	Provider  string    `json:"provider"`
	Mode      Mode      `json:"mode"`
	Selection Selection `json:"selection"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Outcome   string `json:"outcome"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Summary     ReportSummary `json:"summary"`
	Lines       []Line        `json:"lines"`
	Diagnostics []Line        `json:"diagnostics"`
}

type ReportSummary struct {
	Scanned  int `json:"scanned"`
	Skipped  int `json:"skipped"`
	Warnings int `json:"warnings"`
	// PerCategory 记录每个类别参与统计的资产数（key 为类别名）。
	PerCategory map[string]int `json:"per_category"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片/映射规范化为空值（JSON 中输出 [] / {} 而不是 null）
// 3) warnings 由 diagnostics 计算得出
func (r *AuditReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Lines == nil {
		r.Lines = []Line{}
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []Line{}
	}
	if r.Summary.PerCategory == nil {
		r.Summary.PerCategory = map[string]int{}
	}

	warnings := 0
	for _, l := range r.Diagnostics {
		if l.Severity == SeverityWarning {
			warnings++
		}
	}
	r.Summary.Warnings = warnings
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为；map key 由 encoding/json 排序。
func (r AuditReport) MarshalJSON() ([]byte, error) {
	type Alias AuditReport
	return json.Marshal(Alias(r))
}
