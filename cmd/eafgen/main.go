package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/eafgen/internal/app/run"
	"github.com/John-Robertt/eafgen/internal/config"
	"github.com/John-Robertt/eafgen/internal/domain"
	"github.com/John-Robertt/eafgen/internal/infra/fsx"
	"github.com/John-Robertt/eafgen/internal/infra/logx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	cli, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(reportForConfigError(err))
		return 1
	}

	log, err := logx.New(eff.LogLevel, os.Stderr)
	if err != nil {
		// LoadEffective 已校验过级别，这里只是兜底。
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(ctx, eff, log, obs)

	if eff.ReportFile != "" && !eff.DryRun {
		if err := writeReportFile(eff.ReportFile, rr); err != nil {
			log.Error("写入 report 失败", zap.String("path", eff.ReportFile), zap.Error(err))
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.OK() {
		return 0
	}
	return 1
}

func parseRunArgs(args []string) (config.CLIArgs, error) {
	cli := config.CLIArgs{}

	// 形如 --input DIR / --input=DIR 的取值参数。
	valueOf := func(i *int, name string) (string, bool, error) {
		a := args[*i]
		if a == name {
			if *i+1 >= len(args) {
				return "", true, fmt.Errorf("%s 需要一个值", name)
			}
			*i++
			return args[*i], true, nil
		}
		if strings.HasPrefix(a, name+"=") {
			return strings.TrimPrefix(a, name+"="), true, nil
		}
		return "", false, nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		if v, ok, err := valueOf(&i, "--input"); ok {
			if err != nil {
				return config.CLIArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return config.CLIArgs{}, fmt.Errorf("--input 不能为空")
			}
			cli.Input = v
			continue
		}
		if v, ok, err := valueOf(&i, "--output"); ok {
			if err != nil {
				return config.CLIArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return config.CLIArgs{}, fmt.Errorf("--output 不能为空")
			}
			cli.Output = v
			continue
		}
		if v, ok, err := valueOf(&i, "--log-level"); ok {
			if err != nil {
				return config.CLIArgs{}, err
			}
			if _, err := logx.ParseLevel(v); err != nil {
				return config.CLIArgs{}, err
			}
			cli.LogLevel = v
			continue
		}

		switch {
		case a == "--dry-run":
			cli.DryRun = true
			cli.DryRunSet = true
		case strings.HasPrefix(a, "--dry-run="):
			b, err := parseBool("--dry-run", strings.TrimPrefix(a, "--dry-run="))
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.DryRun = b
			cli.DryRunSet = true
		case a == "--keep-going":
			cli.KeepGoing = true
			cli.KeepGoingSet = true
		case strings.HasPrefix(a, "--keep-going="):
			b, err := parseBool("--keep-going", strings.TrimPrefix(a, "--keep-going="))
			if err != nil {
				return config.CLIArgs{}, err
			}
			cli.KeepGoing = b
			cli.KeepGoingSet = true
		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if cli.Root != "" {
				return config.CLIArgs{}, fmt.Errorf("重复的 root：%q 与 %q", cli.Root, a)
			}
			cli.Root = a
		}
	}

	return cli, nil
}

func parseBool(flag, v string) (bool, error) {
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", flag, v)
	}
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  eafgen run [root] [--input DIR] [--output DIR] [--dry-run[=true|false]] [--keep-going[=true|false]] [--log-level L]

命令：
  run    为 <input> 下的视频批量生成 ELAN 标注模板（.eaf）

使用 "eafgen run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  eafgen run [root] [--input DIR] [--output DIR] [--dry-run[=true|false]] [--keep-going[=true|false]] [--log-level L]

参数：
  root          工作根目录（默认当前目录）；可选配置文件位于 <root>/eafgen.yaml
  --input       视频目录（默认 <root>/Input_Videos）
  --output      标注输出目录（默认 <root>/ELAN_anno；不存在则创建）
  --dry-run     只生成不写入；支持 --dry-run=false 覆盖配置中的 dry_run: true
  --keep-going  单个文件失败时继续处理其余文件（默认遇错中止）
  --log-level   debug|info|warn|error（默认 warn；也可用 EAFGEN_LOG_LEVEL）
  -h, --help    显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summaryLine(rr))
		if !rr.OK() {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Video
				if key == "" {
					key = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	s := fmt.Sprintf("完成：written=%d planned=%d failed=%d pending=%d",
		rr.Summary.Written, rr.Summary.Planned, rr.Summary.Failed, rr.Summary.Pending,
	)
	if rr.Aborted {
		s += " (已中止)"
	}
	return s
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		Aborted:    true,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	if rr.Items[0].ErrorCode == "" {
		rr.Items[0].ErrorCode = domain.ErrCodeConfigInvalid
	}
	rr.Finalize()
	return rr
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	dir := filepath.Dir(path)
	if err := fsx.EnsureDir(dir); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, filepath.Base(path), b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	if eff.ReportFile != "" && !eff.DryRun {
		fmt.Fprintf(w, "report: %s\n", eff.ReportFile)
	}
	fmt.Fprintf(w, "out: %s\n", eff.OutputDir)
}
