package domain

type Variant string

const (
	VariantSimple   Variant = "simple"
	VariantAdvanced Variant = "advanced"
)

func (v Variant) Valid() bool {
	return v == VariantSimple || v == VariantAdvanced
}

// HasLanguage reports whether pastes of this variant carry a language tag.
func (v Variant) HasLanguage() bool {
	return v == VariantAdvanced
}

// DefaultDBPath keeps the two variants in separate database files.
func (v Variant) DefaultDBPath() string {
	if v == VariantAdvanced {
		return "pastes_advanced.db"
	}
	return "pastes_simple.db"
}

type Language struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Languages is the set offered to clients. Create does not validate against it.
var Languages = []Language{
	{Tag: "plaintext", Label: "Plain Text"},
	{Tag: "python", Label: "Python"},
	{Tag: "javascript", Label: "JavaScript"},
	{Tag: "css", Label: "CSS"},
	{Tag: "java", Label: "Java"},
	{Tag: "cpp", Label: "C++"},
	{Tag: "csharp", Label: "C#"},
	{Tag: "sql", Label: "SQL"},
	{Tag: "bash", Label: "Bash"},
	{Tag: "yaml", Label: "YAML"},
	{Tag: "json", Label: "JSON"},
}

func KnownLanguage(tag string) bool {
	for _, l := range Languages {
		if l.Tag == tag {
			return true
		}
	}
	return false
}
