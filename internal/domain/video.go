package domain

// VideoFile 描述一次扫描得到的视频文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描之后只读，生成/写入阶段不得修改
type VideoFile struct {
	AbsPath string
	Name    string // 原始文件名，例如 "trial1.mp4"
	Base    string // filename without ext
	Ext     string // 小写，例如 ".mp4"
}
