package recommend

import "time"

const (
	PhaseFetch    = "fetch"
	PhaseFallback = "fallback"
	PhaseRank     = "rank"
)

// Observer 用于把“推荐周期的阶段进度”从核心流程中解耦出来。
//
// 约束：recommend 包只负责发事件，不做任何输出；展示由 chat 决定。
type Observer interface {
	// OnPhaseStart 在阶段开始前调用（例如 fallback 开始前提示用户“改为只按语言查找”）。
	OnPhaseStart(name string)
	// OnPhaseDone 在阶段结束时调用，fields 为该阶段的统计。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}
