package run

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/eafgen/internal/config"
	"github.com/John-Robertt/eafgen/internal/domain"
	"github.com/John-Robertt/eafgen/internal/eaf"
	"github.com/John-Robertt/eafgen/internal/infra/fsx"
	"github.com/John-Robertt/eafgen/internal/scan"
)

// Execute 执行一次生成（或 dry-run），并返回对外稳定的 RunReport。
//
// 流程：确保输出目录 -> 扫描一次 -> 逐个视频 生成+写入（串行，总是覆盖）。
// 默认在第一个失败处中止，剩余视频记为 pending；KeepGoing=true 时单条失败不影响其他。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	if log == nil {
		log = zap.NewNop()
	}
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Input:     eff.InputDir,
		Output:    eff.OutputDir,
		DryRun:    eff.DryRun,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 16),
	}
	log = log.With(zap.String("run_id", rr.RunID))

	// init：输出目录必须在任何写入之前存在；dry-run 不创建。
	if !eff.DryRun {
		initStarted := time.Now()
		if err := fsx.EnsureDir(eff.OutputDir); err != nil {
			log.Error("创建输出目录失败", zap.String("output", eff.OutputDir), zap.Error(err))
			msg := fmt.Sprintf("创建输出目录失败：%v", err)
			if fsx.IsPathTypeConflict(err) {
				msg = fmt.Sprintf("输出路径已被普通文件占用，请移走或换一个输出目录：%s", eff.OutputDir)
			}
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeOutputDirFailed, msg))
			return finish(rr, true)
		}
		if obs != nil {
			obs.OnPhaseDone("init", map[string]any{"output": eff.OutputDir}, time.Since(initStarted))
		}
	}

	scanStarted := time.Now()
	files, err := scan.ScanVideos(eff.InputDir, eff.Extensions)
	if err != nil {
		log.Error("扫描输入目录失败", zap.String("input", eff.InputDir), zap.Error(err))
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeScanFailed, fmt.Sprintf("扫描失败：%v", err)))
		return finish(rr, true)
	}
	scanDur := time.Since(scanStarted)

	log.Info("扫描完成", zap.String("input", eff.InputDir), zap.Int("files", len(files)))
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(files)}, scanDur)
		obs.OnPhaseDone("exec", map[string]any{"total_items": len(files)}, 0)
	}

	for i, v := range files {
		if err := ctx.Err(); err != nil {
			log.Warn("运行被取消", zap.Error(err))
			rr.Items = append(rr.Items, pendingItems(eff, files[i:], fmt.Sprintf("运行被取消：%v", err))...)
			return finish(rr, true)
		}

		oneStarted := time.Now()
		res := processOne(eff, v, log)
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(i+1, len(files), v, res, time.Since(oneStarted))
		}

		if res.Status == domain.StatusFailed && !eff.KeepGoing {
			rest := files[i+1:]
			if len(rest) > 0 {
				log.Warn("遇到失败，中止剩余文件", zap.Int("pending", len(rest)))
			}
			rr.Items = append(rr.Items, pendingItems(eff, rest, fmt.Sprintf("%s 失败后中止，未处理", v.Name))...)
			return finish(rr, true)
		}
	}

	return finish(rr, false)
}

// processOne：生成 -> 序列化 -> 写入（覆盖）。dry-run 只生成+序列化。
func processOne(eff config.EffectiveConfig, v domain.VideoFile, log *zap.Logger) domain.ItemResult {
	name := eaf.OutputName(v, eff.AnnotationExt)
	item := domain.ItemResult{
		Video:  v.Name,
		Output: name,
		Status: domain.StatusWritten,
	}

	b, err := eaf.Encode(eaf.New(v))
	if err != nil {
		log.Error("生成 EAF 失败", zap.String("video", v.Name), zap.Error(err))
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeEncodeFailed
		item.ErrorMsg = fmt.Sprintf("生成 EAF 失败：%v", err)
		return item
	}

	if eff.DryRun {
		item.Status = domain.StatusPlanned
		log.Debug("dry-run：跳过写入", zap.String("video", v.Name), zap.String("output", name))
		return item
	}

	if err := fsx.WriteFileAtomic(eff.OutputDir, name, b); err != nil {
		log.Error("写入 EAF 失败", zap.String("video", v.Name), zap.String("output", name), zap.Error(err))
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("写入 EAF 失败：%v", err)
		return item
	}

	log.Info("已生成 EAF", zap.String("video", v.Name), zap.String("output", filepath.Join(eff.OutputDir, name)))
	return item
}

func pendingItems(eff config.EffectiveConfig, files []domain.VideoFile, msg string) []domain.ItemResult {
	out := make([]domain.ItemResult, 0, len(files))
	for _, v := range files {
		out = append(out, domain.ItemResult{
			Video:     v.Name,
			Output:    eaf.OutputName(v, eff.AnnotationExt),
			Status:    domain.StatusPending,
			ErrorCode: domain.ErrCodeAborted,
			ErrorMsg:  msg,
		})
	}
	return out
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Video:     "",
		Output:    "",
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func finish(rr domain.RunReport, aborted bool) domain.RunReport {
	rr.Aborted = aborted
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
