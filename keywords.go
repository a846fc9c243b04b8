package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContentType is one of the closed set of content-type labels. Declaration
// order in contentTypes doubles as the tie-break order for classification.
type ContentType string

const (
	TypeGeneral       ContentType = "general"
	TypeDocumentation ContentType = "documentation"
	TypePrompt        ContentType = "prompt"
	TypeAgent         ContentType = "agent"
	TypeBlog          ContentType = "blog"
	TypeDraft         ContentType = "draft"
	TypeWorkflow      ContentType = "workflow"
	TypeConfiguration ContentType = "configuration"
	TypeResearch      ContentType = "research"
	TypeThread        ContentType = "thread"
)

var contentTypes = []ContentType{
	TypeGeneral,
	TypeDocumentation,
	TypePrompt,
	TypeAgent,
	TypeBlog,
	TypeDraft,
	TypeWorkflow,
	TypeConfiguration,
	TypeResearch,
	TypeThread,
}

func validContentType(s string) bool {
	for _, ct := range contentTypes {
		if string(ct) == s {
			return true
		}
	}
	return false
}

// KeywordTable holds the immutable keyword lookup data used by the classifier
// and the tag proposer. It is loaded once at startup and passed explicitly;
// nothing mutates it after that.
type KeywordTable struct {
	// Labels maps classification keywords to a content type. Keywords are
	// matched as substrings of directory segments and filenames.
	Labels []LabelKeywords `yaml:"labels"`
	// DirTags are directory segment names that become tags verbatim when a
	// segment matches exactly.
	DirTags []string `yaml:"dir_tags"`
	// NameTags map filename substrings to one or more tags.
	NameTags []KeywordTags `yaml:"name_tags"`
	// DescTags map description tokens to one or more tags.
	DescTags []KeywordTags `yaml:"desc_tags"`
	// TagHints map an existing frontmatter tag directly to a label.
	TagHints []TagHint `yaml:"tag_hints"`
}

type LabelKeywords struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

type KeywordTags struct {
	Keyword string   `yaml:"keyword"`
	Tags    []string `yaml:"tags"`
}

type TagHint struct {
	Tag   string `yaml:"tag"`
	Label string `yaml:"label"`
}

// DefaultKeywordTable returns the built-in lookup data.
func DefaultKeywordTable() *KeywordTable {
	return &KeywordTable{
		Labels: []LabelKeywords{
			{Label: "documentation", Keywords: []string{"readme", "guide", "tutorial", "runbook", "doc"}},
			{Label: "prompt", Keywords: []string{"prompt", "system"}},
			{Label: "agent", Keywords: []string{"agent", "bot"}},
			{Label: "blog", Keywords: []string{"blog", "post", "article"}},
			{Label: "draft", Keywords: []string{"draft", "wip", "temp"}},
			{Label: "workflow", Keywords: []string{"workflow", "process"}},
			{Label: "configuration", Keywords: []string{"config", "settings"}},
			{Label: "research", Keywords: []string{"research", "analysis"}},
			{Label: "thread", Keywords: []string{"thread", "conversation"}},
		},
		DirTags: []string{"ai", "agents", "prompts", "blog", "research", "workflows", "tools"},
		NameTags: []KeywordTags{
			{Keyword: "draft", Tags: []string{"draft"}},
			{Keyword: "wip", Tags: []string{"draft"}},
			{Keyword: "temp", Tags: []string{"draft"}},
			{Keyword: "blog", Tags: []string{"blog"}},
			{Keyword: "post", Tags: []string{"blog"}},
			{Keyword: "article", Tags: []string{"blog"}},
			{Keyword: "prompt", Tags: []string{"prompt"}},
			{Keyword: "system", Tags: []string{"prompt"}},
			{Keyword: "agent", Tags: []string{"agent"}},
			{Keyword: "bot", Tags: []string{"agent"}},
			{Keyword: "workflow", Tags: []string{"workflow"}},
			{Keyword: "process", Tags: []string{"workflow"}},
			{Keyword: "research", Tags: []string{"research"}},
			{Keyword: "analysis", Tags: []string{"research"}},
			{Keyword: "thread", Tags: []string{"thread"}},
			{Keyword: "conversation", Tags: []string{"thread"}},
			{Keyword: "config", Tags: []string{"configuration"}},
			{Keyword: "settings", Tags: []string{"configuration"}},
			{Keyword: "runbook", Tags: []string{"documentation"}},
			{Keyword: "guide", Tags: []string{"documentation"}},
			{Keyword: "tutorial", Tags: []string{"documentation"}},
		},
		DescTags: []KeywordTags{
			{Keyword: "python", Tags: []string{"programming"}},
			{Keyword: "javascript", Tags: []string{"programming"}},
			{Keyword: "typescript", Tags: []string{"programming"}},
			{Keyword: "rust", Tags: []string{"programming"}},
			{Keyword: "go", Tags: []string{"programming"}},
			{Keyword: "docker", Tags: []string{"infrastructure"}},
			{Keyword: "kubernetes", Tags: []string{"infrastructure"}},
			{Keyword: "aws", Tags: []string{"infrastructure"}},
			{Keyword: "gcp", Tags: []string{"infrastructure"}},
			{Keyword: "azure", Tags: []string{"infrastructure"}},
			{Keyword: "api", Tags: []string{"api"}},
			{Keyword: "rest", Tags: []string{"api"}},
			{Keyword: "graphql", Tags: []string{"api"}},
			{Keyword: "endpoint", Tags: []string{"api"}},
			{Keyword: "database", Tags: []string{"database"}},
			{Keyword: "sql", Tags: []string{"database"}},
			{Keyword: "mongodb", Tags: []string{"database"}},
			{Keyword: "postgres", Tags: []string{"database"}},
		},
		TagHints: []TagHint{
			{Tag: "prompt", Label: "prompt"},
			{Tag: "agent", Label: "agent"},
			{Tag: "blog", Label: "blog"},
			{Tag: "draft", Label: "draft"},
			{Tag: "workflow", Label: "workflow"},
			{Tag: "research", Label: "research"},
			{Tag: "documentation", Label: "documentation"},
			{Tag: "configuration", Label: "configuration"},
			{Tag: "thread", Label: "thread"},
		},
	}
}

// LoadKeywordTable reads a keyword table override from a YAML file. Sections
// left empty in the file fall back to the built-in data.
func LoadKeywordTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table yaml: %w", err)
	}
	def := DefaultKeywordTable()
	if len(t.Labels) == 0 {
		t.Labels = def.Labels
	}
	if len(t.DirTags) == 0 {
		t.DirTags = def.DirTags
	}
	if len(t.NameTags) == 0 {
		t.NameTags = def.NameTags
	}
	if len(t.DescTags) == 0 {
		t.DescTags = def.DescTags
	}
	if len(t.TagHints) == 0 {
		t.TagHints = def.TagHints
	}
	for _, lk := range t.Labels {
		if !validContentType(lk.Label) {
			return nil, fmt.Errorf("keyword table: unknown label %q", lk.Label)
		}
	}
	for _, h := range t.TagHints {
		if !validContentType(h.Label) {
			return nil, fmt.Errorf("keyword table: unknown hint label %q", h.Label)
		}
	}
	return &t, nil
}

func normalizeTextToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeTag lower-cases a tag, trims it and collapses inner whitespace to
// hyphens. Hierarchical segments joined by "/" pass through unchanged.
func normalizeTag(s string) string {
	s = normalizeTextToken(s)
	return strings.Join(strings.Fields(s), "-")
}
