package domain

import "time"

const (
	StatusWritten = "written"
	StatusPlanned = "planned"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

const (
	ErrCodeIOFailed        = "io_failed"
	ErrCodeEncodeFailed    = "encode_failed"
	ErrCodeOutputDirFailed = "output_dir_failed"
	ErrCodeScanFailed      = "scan_failed"
	ErrCodeAborted         = "aborted"
	ErrCodeConfigInvalid   = "config_invalid"
)

// RunReport 是对外稳定输出（stdout JSON / report_file）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	Input  string `json:"input"`
	Output string `json:"output"`
	DryRun bool   `json:"dry_run"`

	// Aborted 表示本次运行因未隔离的失败提前结束（剩余条目为 pending）。
	Aborted bool `json:"aborted"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Written int `json:"written"`
	Planned int `json:"planned"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

type ItemResult struct {
	Video  string `json:"video"`
	Output string `json:"output"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 保持处理顺序，不重新排序：abort 时 pending 条目必须出现在失败条目之后。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusWritten:
			s.Written++
		case StatusPlanned:
			s.Planned++
		case StatusFailed:
			s.Failed++
		case StatusPending:
			s.Pending++
		}
	}
	r.Summary = s
}

// OK 表示本次运行没有失败也没有被中止。
func (r RunReport) OK() bool {
	return !r.Aborted && r.Summary.Failed == 0
}
