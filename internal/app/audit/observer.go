package audit

import (
	"time"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

// Observer 用于把“审计进度/阶段/单资产结果”从核心流程中解耦出来。
//
// 约束：
// - audit 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件按顺序同步发出；实现不应阻塞太久（扫描是单线程顺序执行）。
type Observer interface {
	// OnStart 在 Run 开始时调用（用于输出 "Starting Task: Audit Assets..."）。
	OnStart(req Request)
	// OnPhaseDone 在阶段结束时调用（query / scan / report）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnAssetDone 在每个资产处理完成后调用；skip 为空表示该资产参与了统计，否则为 domain.Skip* 原因。
	OnAssetDone(idx, total int, ref domain.AssetRef, c domain.Category, skip string, dur time.Duration)
	// OnFinish 在 Run 返回前调用。
	OnFinish(outcome string, dur time.Duration)
}

// Observers 把事件依次转发给多个 Observer（nil 元素被忽略）。
type Observers []Observer

func (fan Observers) OnStart(req Request) {
	for _, o := range fan {
		if o != nil {
			o.OnStart(req)
		}
	}
}

func (fan Observers) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	for _, o := range fan {
		if o != nil {
			o.OnPhaseDone(name, fields, dur)
		}
	}
}

func (fan Observers) OnAssetDone(idx, total int, ref domain.AssetRef, c domain.Category, skip string, dur time.Duration) {
	for _, o := range fan {
		if o != nil {
			o.OnAssetDone(idx, total, ref, c, skip, dur)
		}
	}
}

func (fan Observers) OnFinish(outcome string, dur time.Duration) {
	for _, o := range fan {
		if o != nil {
			o.OnFinish(outcome, dur)
		}
	}
}
