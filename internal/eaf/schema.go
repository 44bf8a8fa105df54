package eaf

// 以下标识符由 ELAN 侧的标注流程约定，改动会导致旧模板与新模板无法合并。
const (
	TypeDefault  = "default-lt"
	TypeMovement = "mov_detect"

	VocabularyMovement = "movement_detected"

	TierTrial     = "movement_in_trial"
	TierUpperBody = "upper_body"
	TierArms      = "arms"
	TierLowerBody = "lower_body"
	TierHead      = "head_mov"
)

// 四种标准 stereotype（ELAN 固定字符串）。
const (
	StereotypeTimeSubdivision     = "Time_Subdivision"
	StereotypeSymbolicSubdivision = "Symbolic_Subdivision"
	StereotypeSymbolicAssociation = "Symbolic_Association"
	StereotypeIncludedIn          = "Included_In"
)

// LangUndetermined 是 ISO 639-3 的 "und"。
const LangUndetermined = "und"

// Schema 是所有文档共享的固定部分：类型、tier、受控词表、约束。
// 每个文档都从同一份模板复制，不逐字段重建。
type Schema struct {
	LinguisticTypes []LinguisticType       `xml:"LINGUISTIC_TYPE"`
	Tiers           []Tier                 `xml:"TIER"`
	Vocabularies    []ControlledVocabulary `xml:"CONTROLLED_VOCABULARY"`
	Constraints     []Constraint           `xml:"CONSTRAINT"`
}

type LinguisticType struct {
	Constraints       string `xml:"CONSTRAINTS,attr,omitempty"`
	VocabularyRef     string `xml:"CONTROLLED_VOCABULARY_REF,attr,omitempty"`
	GraphicReferences bool   `xml:"GRAPHIC_REFERENCES,attr"`
	ID                string `xml:"LINGUISTIC_TYPE_ID,attr"`
	TimeAlignable     bool   `xml:"TIME_ALIGNABLE,attr"`
}

type Tier struct {
	TypeRef   string `xml:"LINGUISTIC_TYPE_REF,attr"`
	ParentRef string `xml:"PARENT_REF,attr,omitempty"`
	ID        string `xml:"TIER_ID,attr"`
}

type ControlledVocabulary struct {
	ID          string       `xml:"CV_ID,attr"`
	Description Description  `xml:"DESCRIPTION"`
	Entries     []VocabEntry `xml:"CV_ENTRY_ML"`
}

type Description struct {
	LangRef string `xml:"LANG_REF,attr"`
	Text    string `xml:",chardata"`
}

type VocabEntry struct {
	ID     string       `xml:"CVE_ID,attr"`
	Values []VocabValue `xml:"CVE_VALUE"`
}

type VocabValue struct {
	Description string `xml:"DESCRIPTION,attr"`
	LangRef     string `xml:"LANG_REF,attr"`
	Value       string `xml:",chardata"`
}

type Constraint struct {
	Description string `xml:"DESCRIPTION,attr"`
	Stereotype  string `xml:"STEREOTYPE,attr"`
}

var movementSchema = Schema{
	LinguisticTypes: []LinguisticType{
		{GraphicReferences: false, ID: TypeDefault, TimeAlignable: true},
		{
			Constraints:       StereotypeIncludedIn,
			VocabularyRef:     VocabularyMovement,
			GraphicReferences: false,
			ID:                TypeMovement,
			TimeAlignable:     true,
		},
	},
	Tiers: []Tier{
		{TypeRef: TypeDefault, ID: TierTrial},
		{TypeRef: TypeMovement, ParentRef: TierTrial, ID: TierUpperBody},
		{TypeRef: TypeMovement, ParentRef: TierTrial, ID: TierArms},
		{TypeRef: TypeMovement, ParentRef: TierTrial, ID: TierLowerBody},
		{TypeRef: TypeMovement, ParentRef: TierTrial, ID: TierHead},
	},
	Vocabularies: []ControlledVocabulary{{
		ID:          VocabularyMovement,
		Description: Description{LangRef: LangUndetermined},
		Entries: []VocabEntry{{
			// CVE_ID 必须跨文档稳定，否则 ELAN 合并多个文件时会把同一词条当成两个。
			ID: "cveid_26ed26e6-f45d-4a41-b9ab-8af7e69ff0e9",
			Values: []VocabValue{{
				Description: "movement occurs",
				LangRef:     LangUndetermined,
				Value:       "movement",
			}},
		}},
	}},
	Constraints: []Constraint{
		{
			Description: "Time subdivision of parent annotation's time interval, no time gaps allowed within this interval",
			Stereotype:  StereotypeTimeSubdivision,
		},
		{
			Description: "Symbolic subdivision of a parent annotation. Annotations referring to the same parent are ordered",
			Stereotype:  StereotypeSymbolicSubdivision,
		},
		{
			Description: "1-1 association with a parent annotation",
			Stereotype:  StereotypeSymbolicAssociation,
		},
		{
			Description: "Time alignable annotations within the parent annotation's time interval, gaps are allowed",
			Stereotype:  StereotypeIncludedIn,
		},
	},
}

// DefaultSchema 返回固定模板的深拷贝；调用方可以随意修改返回值。
func DefaultSchema() Schema {
	return movementSchema.clone()
}

func (s Schema) clone() Schema {
	out := Schema{
		LinguisticTypes: append([]LinguisticType(nil), s.LinguisticTypes...),
		Tiers:           append([]Tier(nil), s.Tiers...),
		Constraints:     append([]Constraint(nil), s.Constraints...),
	}
	if s.Vocabularies != nil {
		out.Vocabularies = make([]ControlledVocabulary, len(s.Vocabularies))
		for i, cv := range s.Vocabularies {
			entries := make([]VocabEntry, len(cv.Entries))
			for j, e := range cv.Entries {
				entries[j] = VocabEntry{ID: e.ID, Values: append([]VocabValue(nil), e.Values...)}
			}
			cv.Entries = entries
			out.Vocabularies[i] = cv
		}
	}
	return out
}

// TierIDs 按声明顺序返回 tier id。
func (s Schema) TierIDs() []string {
	out := make([]string, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		out = append(out, t.ID)
	}
	return out
}
