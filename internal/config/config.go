package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/eafgen/internal/infra/logx"
)

const (
	// ErrCodeInvalid 表示配置文件/环境变量/参数无法读取、解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是可选配置文件名，位置固定在 <root>/eafgen.yaml。
	FileName = "eafgen.yaml"

	DefaultInputDir      = "Input_Videos"
	DefaultOutputDir     = "ELAN_anno"
	DefaultAnnotationExt = ".eaf"
)

// DefaultExtensions 是未配置时扫描的视频扩展名。
var DefaultExtensions = []string{".mp4"}

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --dry-run=false 必须能覆盖 dry_run: true。
type CLIArgs struct {
	Root   string
	Input  string
	Output string

	DryRun    bool
	DryRunSet bool

	KeepGoing    bool
	KeepGoingSet bool

	LogLevel string
}

// FileConfig 对应 eafgen.yaml 的解析结构。
type FileConfig struct {
	Input         string   `yaml:"input"`
	Output        string   `yaml:"output"`
	Extensions    []string `yaml:"extensions"`
	AnnotationExt string   `yaml:"annotation_ext"`
	DryRun        *bool    `yaml:"dry_run"`
	KeepGoing     *bool    `yaml:"keep_going"`
	LogLevel      string   `yaml:"log_level"`
	ReportFile    string   `yaml:"report_file"`
}

// EnvConfig 是允许通过环境变量覆盖的少数字段（优先级介于 CLI 与配置文件之间）。
type EnvConfig struct {
	LogLevel  string `env:"EAFGEN_LOG_LEVEL"`
	KeepGoing *bool  `env:"EAFGEN_KEEP_GOING"`
}

// EffectiveConfig 是合并并规范化后的最终配置（下游直接消费，不再做二次默认/优先级判断）。
//
// 不变量：所有路径都是 clean + absolute；Extensions 非空、小写、带点、无重复。
type EffectiveConfig struct {
	Root      string
	InputDir  string
	OutputDir string

	Extensions    []string
	AnnotationExt string

	DryRun    bool
	KeepGoing bool
	LogLevel  string

	// ReportFile 为空表示不落盘 report（stdout 仍可输出 JSON）。
	ReportFile string

	// ConfigFile 是实际读取到的配置文件；为空表示没有配置文件。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// - root：CLI 提供则用 CLI（相对 cwd），否则就是 cwd
// - 配置文件：<root>/eafgen.yaml，可选；存在但无法解析则报错
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	root := cwdAbs
	if strings.TrimSpace(cli.Root) != "" {
		root = absCleanFrom(cwdAbs, cli.Root)
	}

	cfgPath := filepath.Join(root, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("环境变量无效：%w", err)}
	}

	eff, err := merge(root, cwdAbs, cli, ec, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	if exists {
		eff.ConfigFile = cfgPath
	}
	return eff, nil
}

func merge(root, cwdAbs string, cli CLIArgs, ec EnvConfig, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// input/output：CLI 相对 cwd；配置文件相对 root；默认值相对 root。
	inputDir := filepath.Join(root, DefaultInputDir)
	if strings.TrimSpace(cli.Input) != "" {
		inputDir = absCleanFrom(cwdAbs, cli.Input)
	} else if strings.TrimSpace(fc.Input) != "" {
		inputDir = absCleanFrom(root, fc.Input)
	}

	outputDir := filepath.Join(root, DefaultOutputDir)
	if strings.TrimSpace(cli.Output) != "" {
		outputDir = absCleanFrom(cwdAbs, cli.Output)
	} else if strings.TrimSpace(fc.Output) != "" {
		outputDir = absCleanFrom(root, fc.Output)
	}

	if inputDir == outputDir {
		return invalid(fmt.Errorf("input 与 output 不能是同一目录：%q", inputDir))
	}

	exts, err := normalizeExtensions(fc.Extensions)
	if err != nil {
		return invalid(err)
	}

	annotationExt := DefaultAnnotationExt
	if strings.TrimSpace(fc.AnnotationExt) != "" {
		annotationExt, err = normalizeExt(fc.AnnotationExt)
		if err != nil {
			return invalid(fmt.Errorf("annotation_ext 无效：%w", err))
		}
	}

	// dry_run：CLI > config > 默认 false
	dryRun := false
	if cli.DryRunSet {
		dryRun = cli.DryRun
	} else if fc.DryRun != nil {
		dryRun = *fc.DryRun
	}

	// keep_going：CLI > env > config > 默认 false
	keepGoing := false
	switch {
	case cli.KeepGoingSet:
		keepGoing = cli.KeepGoing
	case ec.KeepGoing != nil:
		keepGoing = *ec.KeepGoing
	case fc.KeepGoing != nil:
		keepGoing = *fc.KeepGoing
	}

	// log_level：CLI > env > config > 默认
	logLevel := logx.DefaultLevel
	switch {
	case strings.TrimSpace(cli.LogLevel) != "":
		logLevel = cli.LogLevel
	case strings.TrimSpace(ec.LogLevel) != "":
		logLevel = ec.LogLevel
	case strings.TrimSpace(fc.LogLevel) != "":
		logLevel = fc.LogLevel
	}
	logLevel = strings.ToLower(strings.TrimSpace(logLevel))
	if _, err := logx.ParseLevel(logLevel); err != nil {
		return invalid(err)
	}

	reportFile := ""
	if strings.TrimSpace(fc.ReportFile) != "" {
		reportFile = absCleanFrom(root, fc.ReportFile)
	}

	return EffectiveConfig{
		Root:          root,
		InputDir:      inputDir,
		OutputDir:     outputDir,
		Extensions:    exts,
		AnnotationExt: annotationExt,
		DryRun:        dryRun,
		KeepGoing:     keepGoing,
		LogLevel:      logLevel,
		ReportFile:    reportFile,
	}, nil
}

// normalizeExtensions：去空白、转小写、补前导点、去重（保持输入顺序）；为空时回退默认值。
func normalizeExtensions(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ext, err := normalizeExt(raw)
		if err != nil {
			return nil, fmt.Errorf("extensions 无效：%w", err)
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...), nil
	}
	return out, nil
}

func normalizeExt(raw string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(raw))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == "." || strings.ContainsAny(ext[1:], `./\`) {
		return "", fmt.Errorf("%q 不是合法的扩展名", raw)
	}
	return ext, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。未知字段视为错误，避免拼写错误被静默忽略。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		// 空文件：等价于没有配置。
		if errors.Is(err, io.EOF) {
			return FileConfig{}, true, nil
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
