package eaf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/John-Robertt/eafgen/internal/domain"
)

const (
	// 根元素的固定属性。DATE 固定是为了让重复运行得到逐字节相同的文件。
	DefaultAuthor  = "Generated"
	DefaultDate    = "2025-01-01T00:00:00+00:00"
	FormatVersion  = "3.0"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation = "http://www.mpi.nl/tools/elan/EAFv3.0.xsd"

	TimeUnits = "milliseconds"

	// PropLastUsedAnnotationID 初始为 "0"：模板里还没有任何标注。
	PropLastUsedAnnotationID = "lastUsedAnnotationId"
	InitialAnnotationID      = "0"

	DefaultMIMEType = "video/mp4"
)

var mimeByExt = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".wav":  "audio/x-wav",
}

// Document 对应一个 .eaf 文件（ANNOTATION_DOCUMENT）。
//
// 子元素顺序固定：HEADER、LINGUISTIC_TYPE*、TIER*、CONTROLLED_VOCABULARY、CONSTRAINT*。
type Document struct {
	XMLName xml.Name `xml:"ANNOTATION_DOCUMENT"`

	Author         string `xml:"AUTHOR,attr"`
	Date           string `xml:"DATE,attr"`
	Format         string `xml:"FORMAT,attr"`
	Version        string `xml:"VERSION,attr"`
	XMLNSXSI       string `xml:"xmlns:xsi,attr"`
	SchemaLocation string `xml:"xsi:noNamespaceSchemaLocation,attr"`

	// Extra 只在 Decode 时临时承接带前缀的属性；Encode 前总是为空。
	Extra []xml.Attr `xml:",any,attr"`

	Header Header `xml:"HEADER"`
	Schema
}

type Header struct {
	MediaFile  string          `xml:"MEDIA_FILE,attr"`
	TimeUnits  string          `xml:"TIME_UNITS,attr"`
	Media      MediaDescriptor `xml:"MEDIA_DESCRIPTOR"`
	Properties []Property      `xml:"PROPERTY"`
}

type MediaDescriptor struct {
	MediaURL         string `xml:"MEDIA_URL,attr"`
	MIMEType         string `xml:"MIME_TYPE,attr"`
	RelativeMediaURL string `xml:"RELATIVE_MEDIA_URL,attr"`
}

type Property struct {
	Name  string `xml:"NAME,attr"`
	Value string `xml:",chardata"`
}

// New 为一个视频构造注释文档。纯函数：不做 I/O、不校验，永不失败。
//
// 只有 HEADER 随视频变化；其余部分来自 DefaultSchema。
func New(v domain.VideoFile) Document {
	// 基名为空时给空引用，而不是 "./.mp4" 这类无意义的路径。
	rel := ""
	if v.Base != "" {
		name := v.Name
		if name == "" {
			name = v.Base + v.Ext
		}
		rel = "./" + name
	}

	return Document{
		Author:         DefaultAuthor,
		Date:           DefaultDate,
		Format:         FormatVersion,
		Version:        FormatVersion,
		XMLNSXSI:       XSINamespace,
		SchemaLocation: SchemaLocation,

		Header: Header{
			MediaFile: "",
			TimeUnits: TimeUnits,
			Media: MediaDescriptor{
				MediaURL:         v.AbsPath,
				MIMEType:         MIMEType(v.Ext),
				RelativeMediaURL: rel,
			},
			Properties: []Property{{Name: PropLastUsedAnnotationID, Value: InitialAnnotationID}},
		},
		Schema: DefaultSchema(),
	}
}

// MIMEType 按扩展名给出 MEDIA_DESCRIPTOR 的 MIME_TYPE；未知扩展名回退到 video/mp4。
func MIMEType(ext string) string {
	if m, ok := mimeByExt[strings.ToLower(ext)]; ok {
		return m
	}
	return DefaultMIMEType
}

// OutputName 返回视频对应的注释文件名：<base><annotationExt>。
func OutputName(v domain.VideoFile, annotationExt string) string {
	return v.Base + annotationExt
}

// Encode 把 Document 序列化为带 XML 声明的 UTF-8 文本。
// 相同输入必然得到相同字节（幂等重跑依赖这一点）。
func Encode(doc Document) ([]byte, error) {
	doc.Extra = nil
	b, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	out := make([]byte, 0, len(header)+len(b)+1)
	out = append(out, header...)
	out = append(out, b...)
	out = append(out, '\n')
	return out, nil
}

// Decode 解析 Encode 的产物（用于回读检查），不做 EAF schema 校验。
func Decode(b []byte) (Document, error) {
	var doc Document
	if err := xml.NewDecoder(bytes.NewReader(b)).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("解析 EAF 失败：%w", err)
	}

	// encoding/xml 读入时会把前缀拆成 Name.Space，无法直接命中 "xmlns:xsi" 这类 tag。
	for _, a := range doc.Extra {
		switch {
		case a.Name.Space == "xmlns" && a.Name.Local == "xsi":
			doc.XMLNSXSI = a.Value
		case a.Name.Local == "noNamespaceSchemaLocation":
			doc.SchemaLocation = a.Value
		}
	}
	doc.Extra = nil
	return doc, nil
}
