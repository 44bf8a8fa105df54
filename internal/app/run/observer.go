package run

import (
	"time"

	"github.com/John-Robertt/eafgen/internal/config"
	"github.com/John-Robertt/eafgen/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件在调用 Execute 的 goroutine 上同步发出，按处理顺序到达。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（"init"、"scan"、"exec"）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个视频处理完成（写入/失败/规划）时调用；pending 条目不会触发。
	OnItemDone(idx, total int, v domain.VideoFile, res domain.ItemResult, dur time.Duration)
}
