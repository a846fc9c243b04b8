package main

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func sampleReportFixture() ([]FileRecord, []recordOutcome) {
	recs := []FileRecord{
		{Path: "AI/Prompts/system.md", Name: "system.md", Title: "System Prompt", DirSegments: []string{"AI", "Prompts"}},
		{Path: "README.md", Name: "README.md", Title: "Readme"},
		{Path: "blog/a.md", Name: "a.md", Title: "A", DirSegments: []string{"blog"}},
		{Path: "blog/b.md", Name: "b.md", Title: "B", DirSegments: []string{"blog"}},
	}
	outcomes := []recordOutcome{
		{ContentType: TypePrompt, Tags: []string{"ai", "prompt"}, Source: "heuristic"},
		{ContentType: TypeDocumentation, Tags: []string{"documentation"}, Source: "heuristic"},
		{ContentType: TypeBlog, Tags: []string{"blog"}, Source: "heuristic"},
		{ContentType: TypeBlog, Tags: []string{"blog"}, Source: "agent"},
	}
	return recs, outcomes
}

func TestAssembleReportDistribution(t *testing.T) {
	recs, outcomes := sampleReportFixture()
	report := AssembleReport(recs, outcomes, nil, nil, nil)

	if report.TotalFiles != 4 {
		t.Fatalf("expected 4 total files, got %d", report.TotalFiles)
	}
	if len(report.Distribution) != 3 {
		t.Fatalf("expected 3 distribution rows, got %+v", report.Distribution)
	}
	if report.Distribution[0].ContentType != TypeBlog || report.Distribution[0].Count != 2 {
		t.Fatalf("expected blog first with count 2, got %+v", report.Distribution[0])
	}
	// documentation and prompt tie at 1; declaration order breaks it.
	if report.Distribution[1].ContentType != TypeDocumentation || report.Distribution[2].ContentType != TypePrompt {
		t.Fatalf("unexpected tie order: %+v", report.Distribution[1:])
	}

	sum := 0.0
	for _, lc := range report.Distribution {
		sum += lc.Percent
	}
	if math.Abs(sum-100.0) > 1e-9 {
		t.Fatalf("percentages must sum to 100, got %f", sum)
	}
}

func TestAssembleReportFilesFollowRecordOrder(t *testing.T) {
	recs, outcomes := sampleReportFixture()
	report := AssembleReport(recs, outcomes, nil, nil, nil)

	for i, rec := range recs {
		if report.Files[i].Path != rec.Path {
			t.Fatalf("file %d: expected %q, got %q", i, rec.Path, report.Files[i].Path)
		}
	}
	if report.Files[3].Source != "agent" {
		t.Fatalf("expected per-file source preserved, got %q", report.Files[3].Source)
	}
}

func TestAssembleReportIsDeterministic(t *testing.T) {
	recs, outcomes := sampleReportFixture()
	first := AssembleReport(recs, outcomes, nil, nil, nil)
	second := AssembleReport(recs, outcomes, nil, nil, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different reports")
	}
}

func TestAssembleReportEmptyCorpus(t *testing.T) {
	report := AssembleReport(nil, nil, nil, nil, nil)
	if report.TotalFiles != 0 || len(report.Distribution) != 0 || len(report.Files) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestRenderMarkdownSections(t *testing.T) {
	recs, outcomes := sampleReportFixture()
	tagTable := []TagStatistic{
		{Tag: "blog", Count: 2, Related: []RelatedTag{{Tag: "writing", Count: 1}}},
	}
	consolidations := []Consolidation{{TagA: "ai", TagB: "prompt", Overlap: 2}}
	rules := []CategorizationRule{
		{Condition: RuleCondition{ContentType: TypeBlog}, Category: "Blog", Priority: 1, Rationale: "posts cluster"},
	}
	report := AssembleReport(recs, outcomes, tagTable, consolidations, rules)

	md := RenderMarkdown(report, "My Vault")
	for _, want := range []string{
		"# Organization Analysis: My Vault",
		"Analyzed **4** markdown files.",
		"## Content Type Distribution",
		"| blog | 2 | 50.0% |",
		"## Tag Statistics",
		"| blog | 2 | writing (1) |",
		"## Consolidation Suggestions",
		"merging `ai` and `prompt` (2 shared files)",
		"## Categorization Rules",
		`1. When content_type == "blog", file under **Blog**`,
		"## File Recommendations",
		"| README.md | documentation | documentation | heuristic |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("rendered report missing %q:\n%s", want, md)
		}
	}

	if md != RenderMarkdown(report, "My Vault") {
		t.Fatalf("rendering is not deterministic")
	}
}

func TestRenderMarkdownCapsRelatedTags(t *testing.T) {
	report := AnalysisReport{
		TagTable: []TagStatistic{{
			Tag: "api", Count: 9,
			Related: []RelatedTag{
				{Tag: "a", Count: 5}, {Tag: "b", Count: 4},
				{Tag: "c", Count: 3}, {Tag: "d", Count: 2},
			},
		}},
	}
	md := RenderMarkdown(report, "x")
	if strings.Contains(md, "d (2)") {
		t.Fatalf("related column must cap at %d entries:\n%s", maxRelatedShown, md)
	}
	if !strings.Contains(md, "c (3)") {
		t.Fatalf("expected top related entries rendered:\n%s", md)
	}
}

func TestRenderMarkdownMarksZeroSignal(t *testing.T) {
	recs := []FileRecord{{Path: "misc/x.md", Name: "x.md", Title: "X"}}
	outcomes := []recordOutcome{{ContentType: TypeGeneral, ZeroSignal: true, Source: "heuristic"}}
	md := RenderMarkdown(AssembleReport(recs, outcomes, nil, nil, nil), "x")
	if !strings.Contains(md, "general (no signal)") {
		t.Fatalf("expected zero-signal marker:\n%s", md)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("My Vault: notes/2024"); got != "My_Vault__notes_2024" {
		t.Fatalf("unexpected sanitized name: %q", got)
	}
}
