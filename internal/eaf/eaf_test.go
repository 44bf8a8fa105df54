package eaf

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/John-Robertt/eafgen/internal/domain"
)

func trial1() domain.VideoFile {
	return domain.VideoFile{
		AbsPath: "/data/Input_Videos/trial1.mp4",
		Name:    "trial1.mp4",
		Base:    "trial1",
		Ext:     ".mp4",
	}
}

func TestNew_HeaderCarriesVideoReference(t *testing.T) {
	doc := New(trial1())

	if doc.Header.Media.MediaURL != "/data/Input_Videos/trial1.mp4" {
		t.Fatalf("MEDIA_URL 不一致：%q", doc.Header.Media.MediaURL)
	}
	if doc.Header.Media.RelativeMediaURL != "./trial1.mp4" {
		t.Fatalf("RELATIVE_MEDIA_URL 不一致：%q", doc.Header.Media.RelativeMediaURL)
	}
	if doc.Header.Media.MIMEType != "video/mp4" {
		t.Fatalf("MIME_TYPE 不一致：%q", doc.Header.Media.MIMEType)
	}
	if doc.Header.TimeUnits != "milliseconds" || doc.Header.MediaFile != "" {
		t.Fatalf("HEADER 属性不一致：%+v", doc.Header)
	}
	if len(doc.Header.Properties) != 1 ||
		doc.Header.Properties[0].Name != "lastUsedAnnotationId" ||
		doc.Header.Properties[0].Value != "0" {
		t.Fatalf("lastUsedAnnotationId 不一致：%+v", doc.Header.Properties)
	}
}

func TestNew_SchemaInvariantAcrossVideos(t *testing.T) {
	a := New(trial1())
	b := New(domain.VideoFile{AbsPath: "/x/其它 名字.mp4", Name: "其它 名字.mp4", Base: "其它 名字", Ext: ".mp4"})

	if !reflect.DeepEqual(a.Schema, b.Schema) {
		t.Fatalf("不同视频的 schema 部分不应不同")
	}
	if !reflect.DeepEqual(a.Schema, DefaultSchema()) {
		t.Fatalf("文档 schema 应等于固定模板")
	}

	wantTiers := []string{"movement_in_trial", "upper_body", "arms", "lower_body", "head_mov"}
	if got := a.TierIDs(); !reflect.DeepEqual(got, wantTiers) {
		t.Fatalf("tier 集合不一致：got=%v want=%v", got, wantTiers)
	}
	for _, tier := range a.Tiers[1:] {
		if tier.ParentRef != TierTrial || tier.TypeRef != TypeMovement {
			t.Fatalf("子 tier 应挂在 %s 下且使用 %s：%+v", TierTrial, TypeMovement, tier)
		}
	}
	if a.Tiers[0].ParentRef != "" || a.Tiers[0].TypeRef != TypeDefault {
		t.Fatalf("根 tier 不正确：%+v", a.Tiers[0])
	}
}

func TestNew_EmptyBaseNameGivesEmptyReference(t *testing.T) {
	doc := New(domain.VideoFile{})
	if doc.Header.Media.RelativeMediaURL != "" {
		t.Fatalf("空文件名应得到空引用，实际 %q", doc.Header.Media.RelativeMediaURL)
	}
	if _, err := Encode(doc); err != nil {
		t.Fatalf("空文件名也应能序列化：%v", err)
	}
}

func TestNew_DotOnlyNameGivesEmptyReference(t *testing.T) {
	doc := New(domain.VideoFile{AbsPath: "/d/.mp4", Name: ".mp4", Base: "", Ext: ".mp4"})
	if doc.Header.Media.RelativeMediaURL != "" {
		t.Fatalf("基名为空应得到空引用，实际 %q", doc.Header.Media.RelativeMediaURL)
	}
	if doc.Header.Media.MediaURL != "/d/.mp4" {
		t.Fatalf("MEDIA_URL 仍应是绝对路径：%q", doc.Header.Media.MediaURL)
	}
}

func TestNew_NameFallsBackToBaseAndExt(t *testing.T) {
	doc := New(domain.VideoFile{Base: "trial1", Ext: ".mp4"})
	if doc.Header.Media.RelativeMediaURL != "./trial1.mp4" {
		t.Fatalf("缺少 Name 时应由 base+ext 组成引用，实际 %q", doc.Header.Media.RelativeMediaURL)
	}
}

func TestDefaultSchema_ReturnsIndependentCopy(t *testing.T) {
	s := DefaultSchema()
	s.Tiers[0].ID = "changed"
	s.Vocabularies[0].Entries[0].Values[0].Value = "changed"

	fresh := DefaultSchema()
	if fresh.Tiers[0].ID != TierTrial {
		t.Fatalf("修改副本不应影响模板 tier：%q", fresh.Tiers[0].ID)
	}
	if fresh.Vocabularies[0].Entries[0].Values[0].Value != "movement" {
		t.Fatalf("修改副本不应影响模板词表：%q", fresh.Vocabularies[0].Entries[0].Values[0].Value)
	}
}

func TestMIMEType(t *testing.T) {
	cases := map[string]string{
		".mp4":  "video/mp4",
		".MP4":  "video/mp4",
		".mov":  "video/quicktime",
		".mpeg": "video/mpeg",
		".xyz":  "video/mp4",
		"":      "video/mp4",
	}
	for ext, want := range cases {
		if got := MIMEType(ext); got != want {
			t.Fatalf("MIMEType(%q)=%q，期望 %q", ext, got, want)
		}
	}
}

func TestOutputName(t *testing.T) {
	if got := OutputName(trial1(), ".eaf"); got != "trial1.eaf" {
		t.Fatalf("输出文件名不一致：%q", got)
	}
}

func TestEncode_RootAttributesAndOrder(t *testing.T) {
	b, err := Encode(New(trial1()))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	s := string(b)

	if !strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Fatalf("缺少 XML 声明：%q", s[:40])
	}
	for _, want := range []string{
		`AUTHOR="Generated"`,
		`DATE="2025-01-01T00:00:00+00:00"`,
		`FORMAT="3.0"`,
		`VERSION="3.0"`,
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
		`xsi:noNamespaceSchemaLocation="http://www.mpi.nl/tools/elan/EAFv3.0.xsd"`,
		`<HEADER MEDIA_FILE="" TIME_UNITS="milliseconds">`,
		`<PROPERTY NAME="lastUsedAnnotationId">0</PROPERTY>`,
		`<LINGUISTIC_TYPE CONSTRAINTS="Included_In" CONTROLLED_VOCABULARY_REF="movement_detected" GRAPHIC_REFERENCES="false" LINGUISTIC_TYPE_ID="mov_detect" TIME_ALIGNABLE="true">`,
		`<TIER LINGUISTIC_TYPE_REF="mov_detect" PARENT_REF="movement_in_trial" TIER_ID="head_mov">`,
		`<CVE_VALUE DESCRIPTION="movement occurs" LANG_REF="und">movement</CVE_VALUE>`,
		`STEREOTYPE="Symbolic_Association"`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("输出缺少 %s\n%s", want, s)
		}
	}

	// 子元素顺序：HEADER < LINGUISTIC_TYPE < TIER < CONTROLLED_VOCABULARY < CONSTRAINT
	order := []string{"<HEADER", "<LINGUISTIC_TYPE", "<TIER", "<CONTROLLED_VOCABULARY", "<CONSTRAINT"}
	last := -1
	for _, tag := range order {
		i := strings.Index(s, tag)
		if i <= last {
			t.Fatalf("元素 %s 顺序不正确", tag)
		}
		last = i
	}
	if n := strings.Count(s, "<CONSTRAINT "); n != 4 {
		t.Fatalf("期望 4 个 CONSTRAINT，实际 %d", n)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(New(trial1()))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := Encode(New(trial1()))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("同一输入两次序列化结果不同")
	}
}

func TestEncode_EscapesPathCharacters(t *testing.T) {
	v := domain.VideoFile{AbsPath: `/d/a&b "q".mp4`, Name: `a&b "q".mp4`, Base: `a&b "q"`, Ext: ".mp4"}
	b, err := Encode(New(v))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	doc, err := Decode(b)
	if err != nil {
		t.Fatalf("回读失败：%v", err)
	}
	if doc.Header.Media.MediaURL != v.AbsPath || doc.Header.Media.RelativeMediaURL != "./"+v.Name {
		t.Fatalf("特殊字符未正确转义/还原：%+v", doc.Header.Media)
	}
}

func TestDecode_RoundTripBytes(t *testing.T) {
	orig, err := Encode(New(trial1()))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	doc, err := Decode(orig)
	if err != nil {
		t.Fatalf("Decode 失败：%v", err)
	}
	if doc.XMLNSXSI != XSINamespace || doc.SchemaLocation != SchemaLocation {
		t.Fatalf("带前缀的根属性未还原：%q %q", doc.XMLNSXSI, doc.SchemaLocation)
	}
	again, err := Encode(doc)
	if err != nil {
		t.Fatalf("再次 Encode 失败：%v", err)
	}
	if !bytes.Equal(orig, again) {
		t.Fatalf("回读后再序列化不一致：\n%s\n---\n%s", orig, again)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("<ANNOTATION_DOCUMENT")); err == nil {
		t.Fatalf("期望解析错误")
	}
}
