package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/John-Robertt/eafgen/internal/app/run"
	"github.com/John-Robertt/eafgen/internal/config"
	"github.com/John-Robertt/eafgen/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的逐行进度输出。
//
// 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约。
// run 层在单个 goroutine 上同步发事件，这里不需要加锁。
type progressUI struct {
	w io.Writer

	startedAt time.Time
	total     int
	ok        int
	fail      int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "write"
	modeHint := ""
	if eff.DryRun {
		mode = "dry-run"
		modeHint = " (只生成，不写入)"
	}
	onFail := "abort"
	if eff.KeepGoing {
		onFail = "keep-going"
	}

	fmt.Fprintf(p.w, "[%s] eafgen run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  root: %s\n", eff.Root)
	cfgFile := eff.ConfigFile
	if cfgFile == "" {
		cfgFile = "none"
	}
	fmt.Fprintf(p.w, "  config: %s\n", cfgFile)
	fmt.Fprintf(p.w, "  input: %s\n", eff.InputDir)
	fmt.Fprintf(p.w, "  output: %s\n", eff.OutputDir)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  extensions: %s -> %s\n", formatStringListJSON(eff.Extensions), eff.AnnotationExt)
	fmt.Fprintf(p.w, "  on_failure: %s\n", onFail)
	fmt.Fprintf(p.w, "  log_level: %s\n", eff.LogLevel)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "init":
		fmt.Fprintf(p.w, "输出目录就绪 (%s)\n", formatShortDuration(dur))
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "exec":
		p.total = intField(fields, "total_items")
		if p.total == 0 {
			fmt.Fprintln(p.w, "没有匹配的视频文件，无需生成。")
			return
		}
		fmt.Fprintf(p.w, "执行: total_items=%d\n\n", p.total)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, v domain.VideoFile, res domain.ItemResult, dur time.Duration) {
	p.total = total

	switch res.Status {
	case domain.StatusFailed:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n",
			idx, total, v.Name, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusPlanned:
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] %s PLAN -> %s (%s)\n", idx, total, v.Name, res.Output, formatShortDuration(dur))
	default:
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] %s %s -> %s (%s)\n",
			idx, total, v.Name, strings.ToUpper(statusLabel(res.Status)), res.Output, formatShortDuration(dur),
		)
	}

	if idx >= total {
		fmt.Fprintf(p.w, "\n进度: done=%d/%d ok=%d fail=%d elapsed=%s\n",
			idx, total, p.ok, p.fail, formatElapsed(time.Since(p.startedAt)),
		)
	}
}

func statusLabel(s string) string {
	if s == domain.StatusWritten {
		return "ok"
	}
	return s
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
