package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/eafgen/internal/domain"
)

// ScanVideos 列出 dir 下（不递归）扩展名命中 exts 的视频文件。
//
// 规则（硬约束）：
// - dir 不存在：返回空列表，不算错误（没有输入就没有输出）
// - dir 存在但不是目录：返回错误
// - 扩展名比较大小写不敏感；exts 需为 ".mp4" 这类带点的小写形式
// - 子目录与其他文件一律忽略
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanVideos(dir string, exts []string) ([]domain.VideoFile, error) {
	dir = filepath.Clean(dir)
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.VideoFile{}, nil
		}
		if fi, statErr := os.Stat(absDir); statErr == nil && !fi.IsDir() {
			return nil, fmt.Errorf("输入路径不是目录：%q", absDir)
		}
		return nil, err
	}

	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		want[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	files := make([]domain.VideoFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		// 隐藏文件（含 macOS 的 ._xxx 旁路文件）不算视频，与 shell glob 的 * 一致。
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := want[ext]; !ok {
			continue
		}

		// 软链接等按目标类型判断：只要最终指向普通文件即可。
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			info, err = os.Stat(filepath.Join(absDir, name))
			if err != nil {
				continue
			}
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, domain.VideoFile{
			AbsPath: filepath.Join(absDir, name),
			Name:    name,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:     ext,
		})
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的报告顺序抖动。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
